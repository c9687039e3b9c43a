package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoRedisURL is returned when a Redis client is requested without a URL.
var ErrNoRedisURL = errors.New("redis url is required")

// redisOptions parses url and names the connection. Short timeouts keep a
// slow cache from stalling ledger calls, which treat it as optional.
func redisOptions(url string) (*redis.Options, error) {
	if url == "" {
		return nil, ErrNoRedisURL
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.ClientName == "" {
		opt.ClientName = "ftledger"
	}
	opt.DialTimeout = 2 * time.Second
	opt.ReadTimeout = time.Second
	opt.WriteTimeout = time.Second
	return opt, nil
}

// NewRedisClient connects the cache behind idempotency records, rate limits
// and event publishing.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redisOptions(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}
	return client, nil
}
