package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQuoteNotCached is returned when no document is cached for a symbol
var ErrQuoteNotCached = errors.New("quote not cached")

// CycleChannel is the pub/sub channel cycle summaries are published on
var CycleChannel = "CH:COLLECTOR:CYCLE"

const latestQuoteKeyPrefix = "QUOTE:LATEST:"

// QuoteCacheRepository keeps the latest raw document per symbol in Redis
type QuoteCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewQuoteCacheRepository creates a new quote cache repository
func NewQuoteCacheRepository(client *redis.Client, ttl time.Duration) *QuoteCacheRepository {
	return &QuoteCacheRepository{client: client, ttl: ttl}
}

func latestQuoteKey(symbol string) string {
	return latestQuoteKeyPrefix + symbol
}

// SetLatestQuote stores the raw document for symbol
func (r *QuoteCacheRepository) SetLatestQuote(ctx context.Context, symbol string, raw []byte) error {
	if err := r.client.Set(ctx, latestQuoteKey(symbol), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache quote for %s: %w", symbol, err)
	}
	return nil
}

// GetLatestQuote returns the cached raw document for symbol
func (r *QuoteCacheRepository) GetLatestQuote(ctx context.Context, symbol string) ([]byte, error) {
	raw, err := r.client.Get(ctx, latestQuoteKey(symbol)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrQuoteNotCached
		}
		return nil, fmt.Errorf("failed to read cached quote for %s: %w", symbol, err)
	}
	return raw, nil
}

// PublishCycle publishes a cycle summary as JSON on CycleChannel
func (r *QuoteCacheRepository) PublishCycle(ctx context.Context, summary any) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal cycle summary: %w", err)
	}
	if err := r.client.Publish(ctx, CycleChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}
	return nil
}
