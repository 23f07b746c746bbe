package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelojr/votacao-3d/internal/domain"
	"github.com/marcelojr/votacao-3d/internal/platform/ids"
)

var errStop = errors.New("processamento concluido")

func newTestQueue(t *testing.T) *Queue {
	client, _ := setupRedis(t)
	q := NewQueue(client, "fila:votos")
	q.timeout = time.Second
	return q
}

func TestQueue_PublishEConsume_DeveEntregarVotoIntacto(t *testing.T) {
	q := newTestQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	gen := ids.NewGenerator()
	castAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ballot := domain.Ballot{
		ID:       gen.NewAt(castAt),
		UserID:   "u1",
		VoteID:   3,
		OptionID: 2,
		Reason:   "melhor acabamento",
		CastAt:   castAt,
	}
	require.NoError(t, q.Publish(ctx, ballot))

	var recebido domain.Ballot
	err := q.Consume(ctx, func(_ context.Context, b domain.Ballot) error {
		recebido = b
		return errStop
	})

	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, ballot.ID, recebido.ID)
	assert.Equal(t, ballot.UserID, recebido.UserID)
	assert.Equal(t, ballot.VoteID, recebido.VoteID)
	assert.Equal(t, ballot.OptionID, recebido.OptionID)
	assert.Equal(t, ballot.Reason, recebido.Reason)
	assert.True(t, ballot.CastAt.Equal(recebido.CastAt))
}

func TestQueue_Consume_DeveRespeitarOrdemDePublicacao(t *testing.T) {
	q := newTestQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, user := range []string{"u1", "u2", "u3"} {
		require.NoError(t, q.Publish(ctx, domain.Ballot{ID: user, UserID: user, VoteID: 1, OptionID: 1}))
	}

	var mu sync.Mutex
	var ordem []string
	err := q.Consume(ctx, func(_ context.Context, b domain.Ballot) error {
		mu.Lock()
		defer mu.Unlock()
		ordem = append(ordem, b.UserID)
		if len(ordem) == 3 {
			return errStop
		}
		return nil
	})

	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, []string{"u1", "u2", "u3"}, ordem)
}

func TestQueue_Consume_QuandoFilaVazia_DeveTerminarPeloContexto(t *testing.T) {
	q := newTestQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	chamadas := 0
	err := q.Consume(ctx, func(context.Context, domain.Ballot) error {
		chamadas++
		return nil
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, chamadas)
}

func TestQueue_Consume_QuandoContextoCancelado_DeveParar(t *testing.T) {
	q := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := q.Consume(ctx, func(context.Context, domain.Ballot) error {
		t.Fatal("handler nao deveria ser chamado")
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_Consume_QuandoPayloadInvalido_DevePularEContinuar(t *testing.T) {
	client, _ := setupRedis(t)
	q := NewQueue(client, "fila:votos")
	q.timeout = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, client.LPush(ctx, "fila:votos", "{nao-e-json").Err())
	require.NoError(t, q.Publish(ctx, domain.Ballot{ID: "b2", UserID: "u2", VoteID: 1, OptionID: 1}))

	var recebidos []string
	err := q.Consume(ctx, func(_ context.Context, b domain.Ballot) error {
		recebidos = append(recebidos, b.ID)
		return errStop
	})

	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, []string{"b2"}, recebidos)

	restantes, err := client.LLen(ctx, "fila:votos").Result()
	require.NoError(t, err)
	assert.Zero(t, restantes)
}
