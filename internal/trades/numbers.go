package trades

import (
	"context"
	"fmt"

	redisclient "github.com/tradewind-labs/tradedesk-backend/pkg/redis"
)

// NumberAllocator hands out globally unique trade numbers.
type NumberAllocator interface {
	Next(ctx context.Context) (string, error)
}

const tradeNumberCounter = "trade_number"

// RedisNumberAllocator backs trade numbers with a monotonic Redis counter.
// The unique index on trade_number is the backstop if the counter is ever
// reset below its high-water mark.
type RedisNumberAllocator struct {
	client *redisclient.Client
}

func NewRedisNumberAllocator(client *redisclient.Client) *RedisNumberAllocator {
	return &RedisNumberAllocator{client: client}
}

func (a *RedisNumberAllocator) Next(ctx context.Context) (string, error) {
	seq, err := a.client.Incr(ctx, a.client.CounterKey(tradeNumberCounter))
	if err != nil {
		return "", fmt.Errorf("allocate trade number: %w", err)
	}
	return fmt.Sprintf("TRD-%06d", seq), nil
}
