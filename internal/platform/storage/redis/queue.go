package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/votacao-3d/internal/domain"
	"github.com/marcelojr/votacao-3d/internal/platform/metrics"
)

// Queue usa uma lista Redis (LPUSH/BRPOP) para entregar votos aceitos ao worker.
type Queue struct {
	client  *redis.Client
	key     string
	timeout time.Duration
	logger  *slog.Logger
}

func NewQueue(client *redis.Client, key string) *Queue {
	return &Queue{
		client:  client,
		key:     key,
		timeout: 5 * time.Second,
		logger:  slog.Default(),
	}
}

func (q *Queue) Publish(ctx context.Context, b domain.Ballot) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("redis fila: falha serializando voto: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("redis fila: falha ao enfileirar voto: %w", err)
	}
	return nil
}

// Consume bloqueia até o contexto terminar; um erro do handler interrompe o consumo.
// Payload ilegível já saiu da lista no BRPOP: é registrado e pulado.
func (q *Queue) Consume(ctx context.Context, handler func(context.Context, domain.Ballot) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Timeout curto no BRPOP para reavaliar o contexto com frequência.
		res, err := q.client.BRPop(ctx, q.timeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("redis fila: falha ao consumir voto: %w", err)
		}

		if len(res) != 2 {
			continue
		}

		var b domain.Ballot
		if err := json.Unmarshal([]byte(res[1]), &b); err != nil {
			metrics.IncInvalidPayload("redis")
			q.logger.Error("descartando payload invalido", "key", q.key, "err", err)
			continue
		}

		if err := handler(ctx, b); err != nil {
			return err
		}
	}
}

var _ domain.BallotQueue = (*Queue)(nil)
