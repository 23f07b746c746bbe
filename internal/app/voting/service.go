package voting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marcelojr/votacao-3d/internal/domain"
	"github.com/marcelojr/votacao-3d/internal/platform/ids"
	"github.com/marcelojr/votacao-3d/internal/platform/metrics"
)

// Service expõe o Store para a camada HTTP e propaga votos aceitos para fila, banco, contadores e tempo real.
// O Store é a fonte da verdade: falhas nos colaboradores são registradas, nunca desfazem um voto.
type Service struct {
	store    *Store
	votes    domain.VoteRepository
	ballots  domain.BallotRepository
	counter  domain.TallyCounter
	queue    domain.BallotQueue
	notifier domain.ResultsNotifier
	clock    domain.Clock
	ids      *ids.Generator
	logger   *slog.Logger
}

func NewService(
	store *Store,
	votes domain.VoteRepository,
	ballots domain.BallotRepository,
	counter domain.TallyCounter,
	queue domain.BallotQueue,
	notifier domain.ResultsNotifier,
	clock domain.Clock,
	idsGen *ids.Generator,
	logger *slog.Logger,
) *Service {
	if clock == nil {
		clock = utcClock{}
	}
	if store == nil {
		store = NewStore(clock)
	}
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		votes:    votes,
		ballots:  ballots,
		counter:  counter,
		queue:    queue,
		notifier: notifier,
		clock:    clock,
		ids:      idsGen,
		logger:   logger,
	}
}

func (s *Service) CreateVote(ctx context.Context, input domain.NewVote) (domain.Vote, error) {
	v, err := s.store.CreateVote(input)
	if err != nil {
		return domain.Vote{}, err
	}

	if s.votes != nil {
		if err := s.votes.Create(ctx, v); err != nil {
			metrics.IncSideEffectFailure("vote_repository")
			// Sem a linha no banco, o restore descartaria os votos desta votação.
			discarded := s.store.discardVote(v.ID)
			s.logger.Error("falha ao persistir votacao", "vote", v.ID, "discarded", discarded, "err", err)
			return domain.Vote{}, fmt.Errorf("criar votacao: %w", err)
		}
	}

	metrics.IncVoteCreated()
	s.logger.Info("votacao criada", "vote", v.ID, "options", len(v.Options))
	return v, nil
}

func (s *Service) ListVotes(_ context.Context) ([]domain.Vote, error) {
	return s.store.ListVotes(), nil
}

func (s *Service) GetVote(_ context.Context, id domain.VoteID) (domain.Vote, error) {
	return s.store.GetVote(id)
}

// CastBallot registra o voto no Store e só então gera o comprovante e aciona os efeitos colaterais.
func (s *Service) CastBallot(ctx context.Context, b domain.Ballot) (domain.Ballot, error) {
	if err := s.store.CastBallot(b.UserID, b.VoteID, b.OptionID, b.Reason); err != nil {
		return domain.Ballot{}, err
	}

	b.CastAt = s.clock.Now()
	b.ID = s.ids.NewAt(b.CastAt)

	s.propagate(ctx, b)
	return b, nil
}

func (s *Service) GetResults(_ context.Context, id domain.VoteID) (domain.Results, error) {
	return s.store.GetResults(id)
}

func (s *Service) GetUserVotes(_ context.Context, userID string) ([]domain.VoteID, error) {
	return s.store.GetUserVotes(userID), nil
}

// Restore reconstrói o Store a partir dos repositórios; sem repositório de votações não há o que restaurar.
func (s *Service) Restore(ctx context.Context) error {
	if s.votes == nil {
		return nil
	}

	votes, err := s.votes.List(ctx)
	if err != nil {
		return fmt.Errorf("restore: listar votacoes: %w", err)
	}

	var ballots []domain.Ballot
	if s.ballots != nil {
		ballots, err = s.ballots.List(ctx)
		if err != nil {
			return fmt.Errorf("restore: listar votos: %w", err)
		}
	}

	applied, err := s.store.Restore(votes, ballots)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	s.logger.Info("estado restaurado", "votes", len(votes), "ballots", applied, "skipped", len(ballots)-applied)
	return nil
}

func (s *Service) propagate(ctx context.Context, b domain.Ballot) {
	if s.queue != nil {
		// No modo assíncrono o worker persiste o voto e atualiza o espelho de contadores.
		if err := s.queue.Publish(ctx, b); err != nil {
			metrics.IncSideEffectFailure("queue")
			s.logger.Error("falha ao publicar voto", "ballot", b.ID, "vote", b.VoteID, "err", err)
		}
	} else {
		if s.ballots != nil {
			if _, err := s.ballots.Register(ctx, b); err != nil {
				metrics.IncSideEffectFailure("ballot_repository")
				s.logger.Error("falha ao persistir voto", "ballot", b.ID, "vote", b.VoteID, "err", err)
			}
		}
		if s.counter != nil {
			if err := MirrorBallot(ctx, s.counter, b); err != nil {
				metrics.IncSideEffectFailure("tally_counter")
				s.logger.Error("falha ao espelhar contadores", "ballot", b.ID, "vote", b.VoteID, "err", err)
			}
		}
	}

	if s.notifier != nil {
		results, err := s.store.GetResults(b.VoteID)
		if err != nil {
			s.logger.Error("falha ao calcular parciais", "vote", b.VoteID, "err", err)
			return
		}
		s.notifier.Notify(results)
	}
}

// MirrorBallot incrementa os contadores total e da opção para um voto aceito.
func MirrorBallot(ctx context.Context, counter domain.TallyCounter, b domain.Ballot) error {
	if _, err := counter.Increment(ctx, CounterKeyTotal(b.VoteID), 1); err != nil {
		return fmt.Errorf("incrementar total %d: %w", b.VoteID, err)
	}
	if _, err := counter.Increment(ctx, CounterKeyOption(b.VoteID, b.OptionID), 1); err != nil {
		return fmt.Errorf("incrementar opcao %d/%d: %w", b.VoteID, b.OptionID, err)
	}
	return nil
}

var _ domain.VotingService = (*Service)(nil)
