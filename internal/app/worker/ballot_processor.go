// Pacote worker contém o processamento assíncrono dos votos aceitos que chegam pela fila.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelojr/votacao-3d/internal/app/voting"
	"github.com/marcelojr/votacao-3d/internal/domain"
	"github.com/marcelojr/votacao-3d/internal/platform/metrics"
)

// BallotProcessor grava votos no repositório e mantém o espelho de contadores.
type BallotProcessor struct {
	repo    domain.BallotRepository
	counter domain.TallyCounter
	clock   domain.Clock
}

func NewBallotProcessor(repo domain.BallotRepository, counter domain.TallyCounter, clock domain.Clock) *BallotProcessor {
	return &BallotProcessor{
		repo:    repo,
		counter: counter,
		clock:   clock,
	}
}

func (p *BallotProcessor) Process(ctx context.Context, b domain.Ballot) error {
	start := time.Now()

	if b.CastAt.IsZero() && p.clock != nil {
		b.CastAt = p.clock.Now()
	}

	if p.repo != nil {
		inserted, err := p.repo.Register(ctx, b)
		if err != nil {
			return fmt.Errorf("worker: registrar voto %s: %w", b.ID, err)
		}
		if !inserted {
			// Reentrega: o voto já foi contado no espelho.
			metrics.IncBallotRedelivered()
			return nil
		}
	}

	if p.counter != nil {
		if err := voting.MirrorBallot(ctx, p.counter, b); err != nil {
			return fmt.Errorf("worker: %w", err)
		}
	}

	metrics.IncBallotProcessed()
	metrics.ObserveProcessingDuration(time.Since(start).Seconds())
	return nil
}
