package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/votacao-3d/internal/domain"
)

// Tally espelha os contadores do Store em chaves Redis para leitura externa (dashboards, scripts).
type Tally struct {
	client *redis.Client
	prefix string
}

func NewTally(client *redis.Client, prefix string) *Tally {
	return &Tally{
		client: client,
		prefix: prefix,
	}
}

func (t *Tally) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	val, err := t.client.IncrBy(ctx, t.key(key), delta).Result()
	if err != nil {
		return 0, fmt.Errorf("redis tally: incrementar %s: %w", key, err)
	}
	return val, nil
}

func (t *Tally) key(key string) string {
	if t.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", t.prefix, key)
}

var _ domain.TallyCounter = (*Tally)(nil)
