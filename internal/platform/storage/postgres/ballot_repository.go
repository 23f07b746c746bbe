package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marcelojr/votacao-3d/internal/domain"
)

// BallotRepository é o log durável dos votos aceitos, usado para reconstruir o Store.
type BallotRepository struct {
	db *gorm.DB
}

func NewBallotRepository(db *gorm.DB) *BallotRepository {
	return &BallotRepository{db: db}
}

type ballotModel struct {
	ID       string    `gorm:"column:id;type:char(26);primaryKey"`
	UserID   string    `gorm:"column:user_id;type:text;not null;uniqueIndex:idx_ballots_user_vote,priority:1"`
	VoteID   int64     `gorm:"column:vote_id;not null;index:idx_ballots_vote;uniqueIndex:idx_ballots_user_vote,priority:2"`
	OptionID int       `gorm:"column:option_id;not null"`
	Reason   string    `gorm:"column:reason;type:text"`
	CastAt   time.Time `gorm:"column:cast_at;not null;index:idx_ballots_cast_at"`
}

func (ballotModel) TableName() string {
	return "ballots"
}

func fromDomainBallot(b domain.Ballot) ballotModel {
	return ballotModel{
		ID:       b.ID,
		UserID:   b.UserID,
		VoteID:   int64(b.VoteID),
		OptionID: int(b.OptionID),
		Reason:   b.Reason,
		CastAt:   b.CastAt,
	}
}

func (m ballotModel) toDomain() domain.Ballot {
	return domain.Ballot{
		ID:       m.ID,
		UserID:   m.UserID,
		VoteID:   domain.VoteID(m.VoteID),
		OptionID: domain.OptionID(m.OptionID),
		Reason:   m.Reason,
		CastAt:   m.CastAt,
	}
}

// Register é idempotente: reentregas da fila com o mesmo id ou o mesmo par (usuário, votação)
// são ignoradas e devolvem inserted=false.
func (r *BallotRepository) Register(ctx context.Context, b domain.Ballot) (bool, error) {
	model := fromDomainBallot(b)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model)
	if res.Error != nil {
		return false, fmt.Errorf("gorm ballots: inserir: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// List devolve os votos na ordem em que foram aceitos; o ULID desempata votos do mesmo instante.
func (r *BallotRepository) List(ctx context.Context) ([]domain.Ballot, error) {
	var models []ballotModel
	if err := r.db.WithContext(ctx).
		Order("cast_at ASC").
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm ballots: listar: %w", err)
	}

	result := make([]domain.Ballot, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}
	return result, nil
}

var _ domain.BallotRepository = (*BallotRepository)(nil)
