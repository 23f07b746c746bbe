// Pacote kafka oferece uma fila de votos alternativa ao Redis, particionada pelo id da votação.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/marcelojr/votacao-3d/internal/domain"
	"github.com/marcelojr/votacao-3d/internal/platform/metrics"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Queue publica com balanceamento por hash da chave (id da votação), preservando a ordem por votação.
type Queue struct {
	writer messageWriter
	reader messageReader
	logger *slog.Logger
}

func NewQueue(brokers []string, topic, groupID string) *Queue {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  5,
		Compression:  kafka.Snappy,
	}

	var r messageReader
	if groupID != "" {
		r = kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID,
			MinBytes:    1,
			MaxBytes:    10e6,
			MaxWait:     time.Second,
			StartOffset: kafka.FirstOffset,
		})
	}

	return &Queue{writer: w, reader: r, logger: slog.Default()}
}

func (q *Queue) Publish(ctx context.Context, b domain.Ballot) error {
	msg, err := encode(b)
	if err != nil {
		return err
	}
	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka fila: falha ao publicar voto: %w", err)
	}
	return nil
}

// Consume só confirma o offset depois que o handler aceita a mensagem (entrega at-least-once).
// Mensagem ilegível é registrada, confirmada e pulada.
func (q *Queue) Consume(ctx context.Context, handler func(context.Context, domain.Ballot) error) error {
	if q.reader == nil {
		return errors.New("kafka fila: consumidor sem group id")
	}

	for {
		msg, err := q.reader.FetchMessage(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, io.EOF) {
				return err
			}
			return fmt.Errorf("kafka fila: falha ao consumir voto: %w", err)
		}

		b, err := decode(msg)
		if err != nil {
			metrics.IncInvalidPayload("kafka")
			q.log().Error("descartando mensagem invalida", "partition", msg.Partition, "offset", msg.Offset, "err", err)
			if err := q.reader.CommitMessages(ctx, msg); err != nil {
				return fmt.Errorf("kafka fila: falha ao confirmar offset: %w", err)
			}
			continue
		}

		if err := handler(ctx, b); err != nil {
			return err
		}

		if err := q.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("kafka fila: falha ao confirmar offset: %w", err)
		}
	}
}

func (q *Queue) Close() error {
	var errs []error
	if err := q.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("kafka writer: %w", err))
	}
	if q.reader != nil {
		if err := q.reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka reader: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (q *Queue) log() *slog.Logger {
	if q.logger == nil {
		return slog.Default()
	}
	return q.logger
}

func encode(b domain.Ballot) (kafka.Message, error) {
	payload, err := json.Marshal(b)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka fila: falha serializando voto: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(int64(b.VoteID), 10)),
		Value: payload,
		Time:  b.CastAt,
	}, nil
}

func decode(msg kafka.Message) (domain.Ballot, error) {
	var b domain.Ballot
	if err := json.Unmarshal(msg.Value, &b); err != nil {
		return domain.Ballot{}, fmt.Errorf("kafka fila: payload invalido (offset %d): %w", msg.Offset, err)
	}
	return b, nil
}

var _ domain.BallotQueue = (*Queue)(nil)
