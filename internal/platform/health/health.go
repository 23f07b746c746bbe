// Pacote health expõe o readiness dos backends configurados (Postgres, Redis, Kafka).
package health

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

type probe struct {
	name string
	ping func(ctx context.Context) error
}

// Checker executa as sondas na ordem de registro e para na primeira falha.
type Checker struct {
	probes  []probe
	timeout time.Duration
}

func NewChecker() *Checker {
	return &Checker{timeout: 2 * time.Second}
}

func (c *Checker) WithDB(db *sql.DB) *Checker {
	if db != nil {
		c.probes = append(c.probes, probe{name: "database", ping: db.PingContext})
	}
	return c
}

func (c *Checker) WithRedis(client *redis.Client) *Checker {
	if client != nil {
		c.probes = append(c.probes, probe{name: "redis", ping: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}
	return c
}

// WithKafka considera o Kafka pronto quando ao menos um broker aceita conexão.
func (c *Checker) WithKafka(brokers []string) *Checker {
	if len(brokers) > 0 {
		c.probes = append(c.probes, probe{name: "kafka", ping: func(ctx context.Context) error {
			var lastErr error
			for _, broker := range brokers {
				conn, err := kafka.DialContext(ctx, "tcp", broker)
				if err != nil {
					lastErr = err
					continue
				}
				return conn.Close()
			}
			return fmt.Errorf("kafka: nenhum broker disponivel: %w", lastErr)
		}})
	}
	return c
}

func (c *Checker) Check(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	for _, p := range c.probes {
		if err := ctx.Err(); err != nil {
			return p.name, err
		}
		if err := p.ping(ctx); err != nil {
			return p.name, err
		}
	}
	return "", nil
}

func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if name, err := c.Check(r.Context()); err != nil {
			http.Error(w, name+" unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
