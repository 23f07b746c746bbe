package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/marcelojr/votacao-3d/internal/app/voting"
	"github.com/marcelojr/votacao-3d/internal/domain"
	postgresstorage "github.com/marcelojr/votacao-3d/internal/platform/storage/postgres"
	redisstorage "github.com/marcelojr/votacao-3d/internal/platform/storage/redis"
)

func TestBallotProcessorProcess(t *testing.T) {
	repo := &memBallotRepo{}
	counter := &memCounter{values: make(map[string]int64)}
	clock := &fixedClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)}

	processor := NewBallotProcessor(repo, counter, clock)

	b := domain.Ballot{ID: "ballot-1", UserID: "u1", VoteID: 3, OptionID: 2}

	require.NoError(t, processor.Process(context.Background(), b))

	require.Len(t, repo.ballots, 1)
	assert.Equal(t, clock.now, repo.ballots[0].CastAt, "worker deveria preencher CastAt quando vazio")
	assert.Equal(t, int64(1), counter.values[voting.CounterKeyTotal(3)])
	assert.Equal(t, int64(1), counter.values[voting.CounterKeyOption(3, 2)])
}

func TestBallotProcessor_PreservaCastAtDaAPI(t *testing.T) {
	repo := &memBallotRepo{}
	castAt := time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)

	processor := NewBallotProcessor(repo, nil, &fixedClock{now: time.Now()})

	require.NoError(t, processor.Process(context.Background(), domain.Ballot{ID: "b", UserID: "u", VoteID: 1, OptionID: 1, CastAt: castAt}))
	assert.Equal(t, castAt, repo.ballots[0].CastAt)
}

func TestBallotProcessor_FalhaNoRepositorioNaoIncrementaContadores(t *testing.T) {
	repo := &memBallotRepo{err: errors.New("db fora")}
	counter := &memCounter{values: make(map[string]int64)}

	processor := NewBallotProcessor(repo, counter, &fixedClock{})

	err := processor.Process(context.Background(), domain.Ballot{ID: "b", UserID: "u", VoteID: 1, OptionID: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "registrar voto b")
	assert.Empty(t, counter.values)
}

func TestBallotProcessor_FalhaNoContadorPropagaErro(t *testing.T) {
	processor := NewBallotProcessor(&memBallotRepo{}, &memCounter{err: errors.New("redis fora")}, &fixedClock{})

	err := processor.Process(context.Background(), domain.Ballot{ID: "b", UserID: "u", VoteID: 1, OptionID: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "incrementar total 1")
}

func TestBallotProcessor_Reentrega_NaoContaDuasVezesNoEspelho(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(postgresstorage.Models()...))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	processor := NewBallotProcessor(
		postgresstorage.NewBallotRepository(db),
		redisstorage.NewTally(client, "contador"),
		&fixedClock{now: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
	)
	b := domain.Ballot{ID: "01HZX0000000000000000000B1", UserID: "u1", VoteID: 4, OptionID: 2}
	ctx := context.Background()

	require.NoError(t, processor.Process(ctx, b))
	require.NoError(t, processor.Process(ctx, b))

	var rows int64
	require.NoError(t, db.Table("ballots").Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	total, err := mr.Get("contador:" + voting.CounterKeyTotal(4))
	require.NoError(t, err)
	assert.Equal(t, "1", total)

	option, err := mr.Get("contador:" + voting.CounterKeyOption(4, 2))
	require.NoError(t, err)
	assert.Equal(t, "1", option)
}

func TestBallotProcessor_Reentrega_ComFakes(t *testing.T) {
	repo := &memBallotRepo{}
	counter := &memCounter{values: make(map[string]int64)}
	processor := NewBallotProcessor(repo, counter, &fixedClock{})

	b := domain.Ballot{ID: "b", UserID: "u", VoteID: 1, OptionID: 1}
	require.NoError(t, processor.Process(context.Background(), b))
	require.NoError(t, processor.Process(context.Background(), b))

	assert.Len(t, repo.ballots, 1)
	assert.Equal(t, int64(1), counter.values[voting.CounterKeyTotal(1)])
}

type memBallotRepo struct {
	ballots []domain.Ballot
	err     error
}

func (m *memBallotRepo) Register(_ context.Context, b domain.Ballot) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for _, existing := range m.ballots {
		if existing.UserID == b.UserID && existing.VoteID == b.VoteID {
			return false, nil
		}
	}
	m.ballots = append(m.ballots, b)
	return true, nil
}

func (m *memBallotRepo) List(context.Context) ([]domain.Ballot, error) {
	return m.ballots, nil
}

type memCounter struct {
	values map[string]int64
	err    error
}

func (m *memCounter) Increment(_ context.Context, key string, delta int64) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.values[key] += delta
	return m.values[key], nil
}

type fixedClock struct {
	now time.Time
}

func (f *fixedClock) Now() time.Time {
	return f.now
}
