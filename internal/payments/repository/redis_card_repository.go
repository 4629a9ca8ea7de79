package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/domain"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/mapper"
	"github.com/redis/go-redis/v9"
)

const (
	redisCardPrefix   = "card:"
	redisCardIndex    = "cards:index"
	redisCardSequence = "cards:seq"
)

// RedisCardRepository stores each card as a JSON document under card:{number}.
// A sorted set scored by insertion sequence keeps paging stable.
type RedisCardRepository struct {
	client redis.Cmdable
}

var _ CardRepository = (*RedisCardRepository)(nil)

func NewRedisCardRepository(client redis.Cmdable) *RedisCardRepository {
	return &RedisCardRepository{client: client}
}

func cardKey(number string) string {
	return redisCardPrefix + number
}

func (r *RedisCardRepository) Save(ctx context.Context, card *domain.Card) (*domain.Card, error) {
	record := mapper.ToCardRecord(card)
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode card %s: %w", card.Number(), err)
	}

	_, err = r.client.ZScore(ctx, redisCardIndex, record.Number).Result()
	isNew := errors.Is(err, redis.Nil)
	if err != nil && !isNew {
		return nil, fmt.Errorf("lookup card %s: %w", card.Number(), err)
	}

	var score float64
	if isNew {
		seq, err := r.client.Incr(ctx, redisCardSequence).Result()
		if err != nil {
			return nil, fmt.Errorf("allocate card sequence: %w", err)
		}
		score = float64(seq)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, cardKey(record.Number), payload, 0)
		if isNew {
			pipe.ZAddNX(ctx, redisCardIndex, redis.Z{Score: score, Member: record.Number})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save card %s: %w", card.Number(), err)
	}
	return mapper.ToDomainCard(record)
}

func (r *RedisCardRepository) FindAll(ctx context.Context, page PageSpec) (ResultPage[*domain.Card], error) {
	total, err := r.client.ZCard(ctx, redisCardIndex).Result()
	if err != nil {
		return ResultPage[*domain.Card]{}, fmt.Errorf("count cards: %w", err)
	}

	start, end := window(page, int(total))
	if start == end {
		return NewResultPage([]*domain.Card{}, page, int(total)), nil
	}

	numbers, err := r.client.ZRange(ctx, redisCardIndex, int64(start), int64(end-1)).Result()
	if err != nil {
		return ResultPage[*domain.Card]{}, fmt.Errorf("list cards: %w", err)
	}

	keys := make([]string, len(numbers))
	for i, number := range numbers {
		keys[i] = cardKey(number)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return ResultPage[*domain.Card]{}, fmt.Errorf("load cards: %w", err)
	}

	cards := make([]*domain.Card, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		card, err := decodeCard(raw)
		if err != nil {
			return ResultPage[*domain.Card]{}, err
		}
		cards = append(cards, card)
	}
	return NewResultPage(cards, page, int(total)), nil
}

func (r *RedisCardRepository) FindByNumber(ctx context.Context, number domain.CardNumber) (*domain.Card, error) {
	raw, err := r.client.Get(ctx, cardKey(number.String())).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrCardNotFound
		}
		return nil, fmt.Errorf("find card %s: %w", number, err)
	}
	return decodeCard(raw)
}

func decodeCard(raw string) (*domain.Card, error) {
	var record mapper.CardRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode card: %w", err)
	}
	return mapper.ToDomainCard(record)
}
