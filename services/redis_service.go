package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Cards/utils"
	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client *redis.Client
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func RedisConfigFrom(c *utils.Config) *RedisConfig {
	return &RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

func NewRedisService(config *RedisConfig) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &RedisService{
		client: client,
	}, nil
}

// Client exposes the connection to the card repository and the event
// publisher.
func (r *RedisService) Client() *redis.Client {
	return r.client
}

// Close closes the Redis connection
func (r *RedisService) Close() error {
	return r.client.Close()
}
