package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelojr/votacao-3d/internal/domain"
	"github.com/marcelojr/votacao-3d/internal/platform/ids"
)

func TestBallotRepository_RegisterEList_DeveRetornarNaOrdemDeAceitacao(t *testing.T) {
	db := setupDB(t)
	repo := NewBallotRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	segundo := domain.Ballot{ID: gen.NewAt(base.Add(time.Second)), UserID: "u2", VoteID: 1, OptionID: 2, CastAt: base.Add(time.Second)}
	primeiro := domain.Ballot{ID: gen.NewAt(base), UserID: "u1", VoteID: 1, OptionID: 1, Reason: "gostei", CastAt: base}

	for _, b := range []domain.Ballot{segundo, primeiro} {
		inserted, err := repo.Register(ctx, b)
		require.NoError(t, err)
		assert.True(t, inserted)
	}

	ballots, err := repo.List(ctx)

	require.NoError(t, err)
	require.Len(t, ballots, 2)
	assert.Equal(t, primeiro.ID, ballots[0].ID)
	assert.Equal(t, "u1", ballots[0].UserID)
	assert.Equal(t, "gostei", ballots[0].Reason)
	assert.Equal(t, domain.OptionID(1), ballots[0].OptionID)
	assert.Equal(t, segundo.ID, ballots[1].ID)
}

func TestBallotRepository_Register_QuandoReentregue_DeveIgnorarDuplicata(t *testing.T) {
	db := setupDB(t)
	repo := NewBallotRepository(db)
	ctx := context.Background()
	gen := ids.NewGenerator()

	ballot := domain.Ballot{ID: gen.New(), UserID: "u1", VoteID: 7, OptionID: 1, CastAt: time.Now().UTC()}

	inserted, err := repo.Register(ctx, ballot)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Register(ctx, ballot)
	require.NoError(t, err)
	assert.False(t, inserted, "reentrega com o mesmo id nao deve inserir")

	outro := ballot
	outro.ID = gen.New()
	outro.OptionID = 2
	inserted, err = repo.Register(ctx, outro)
	require.NoError(t, err)
	assert.False(t, inserted, "mesmo par usuario/votacao nao deve inserir")

	ballots, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ballots, 1)
	assert.Equal(t, domain.OptionID(1), ballots[0].OptionID)
}
