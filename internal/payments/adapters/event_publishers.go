package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/service"
	"github.com/SwiftFiat/SwiftFiat-Cards/services/monitoring/logging"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultEventChannel = "cards.transactions"

// LogEventPublisher writes every event to the application log.
type LogEventPublisher struct {
	logger *logging.Logger
}

func NewLogEventPublisher(logger *logging.Logger) *LogEventPublisher {
	return &LogEventPublisher{logger: logger}
}

func (p *LogEventPublisher) Publish(_ context.Context, event service.TransactionAdded) {
	p.logger.WithFields(logrus.Fields{
		"card_number":    event.CardNumber,
		"transaction_id": event.TransactionID,
	}).Info(fmt.Sprintf("Event: %s transaction added", event.Type))
}

// RedisEventPublisher sends events as JSON on a redis pub/sub channel.
// Delivery failures are logged and never reach the caller.
type RedisEventPublisher struct {
	client  redis.Cmdable
	channel string
	logger  *logging.Logger
}

func NewRedisEventPublisher(client redis.Cmdable, channel string, logger *logging.Logger) *RedisEventPublisher {
	if channel == "" {
		channel = DefaultEventChannel
	}
	return &RedisEventPublisher{client: client, channel: channel, logger: logger}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, event service.TransactionAdded) {
	raw, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(fmt.Sprintf("could not encode event: %v", err))
		return
	}
	if err := p.client.Publish(ctx, p.channel, raw).Err(); err != nil {
		p.logger.WithFields(logrus.Fields{
			"channel":        p.channel,
			"transaction_id": event.TransactionID,
			"error":          err.Error(),
		}).Error("could not publish transaction event")
	}
}

// FanOutPublisher forwards each event to every publisher in order.
type FanOutPublisher []service.TransactionEventPublisher

func (f FanOutPublisher) Publish(ctx context.Context, event service.TransactionAdded) {
	for _, p := range f {
		p.Publish(ctx, event)
	}
}
