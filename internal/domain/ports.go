package domain

import (
	"context"
	"time"
)

type VoteRepository interface {
	Create(ctx context.Context, v Vote) error
	List(ctx context.Context) ([]Vote, error)
}

type BallotRepository interface {
	// Register devolve false quando o voto já estava gravado (reentrega).
	Register(ctx context.Context, b Ballot) (bool, error)
	List(ctx context.Context) ([]Ballot, error)
}

type TallyCounter interface {
	Increment(ctx context.Context, key string, delta int64) (int64, error)
}

type BallotQueue interface {
	Publish(ctx context.Context, b Ballot) error
	Consume(ctx context.Context, handler func(context.Context, Ballot) error) error
}

// ResultsNotifier recebe as parciais recalculadas a cada voto aceito.
type ResultsNotifier interface {
	Notify(results Results)
}

type Clock interface {
	Now() time.Time
}

type VotingService interface {
	CreateVote(ctx context.Context, input NewVote) (Vote, error)
	ListVotes(ctx context.Context) ([]Vote, error)
	GetVote(ctx context.Context, id VoteID) (Vote, error)
	CastBallot(ctx context.Context, ballot Ballot) (Ballot, error)
	GetResults(ctx context.Context, id VoteID) (Results, error)
	GetUserVotes(ctx context.Context, userID string) ([]VoteID, error)
}
