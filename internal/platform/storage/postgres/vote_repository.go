package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcelojr/votacao-3d/internal/domain"
)

// VoteRepository guarda a definição das votações; contadores não são persistidos, nascem da reaplicação dos votos.
type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

type voteModel struct {
	ID          int64         `gorm:"column:id;primaryKey;autoIncrement:false"`
	Title       string        `gorm:"column:title;type:text;not null"`
	PDFFilename string        `gorm:"column:pdf_filename;type:text"`
	OBJFilename string        `gorm:"column:obj_filename;type:text"`
	GLBFilename string        `gorm:"column:glb_filename;type:text"`
	CreatedAt   time.Time     `gorm:"column:created_at;not null"`
	Options     []optionModel `gorm:"foreignKey:VoteID;references:ID;constraint:OnDelete:CASCADE"`
}

func (voteModel) TableName() string {
	return "votes"
}

type optionModel struct {
	VoteID   int64  `gorm:"column:vote_id;primaryKey;autoIncrement:false"`
	OptionID int    `gorm:"column:option_id;primaryKey;autoIncrement:false"`
	Text     string `gorm:"column:text;type:text;not null"`
	Reason   string `gorm:"column:reason;type:text"`
}

func (optionModel) TableName() string {
	return "vote_options"
}

func fromDomainVote(v domain.Vote) voteModel {
	model := voteModel{
		ID:          int64(v.ID),
		Title:       v.Title,
		PDFFilename: v.PDFFilename,
		OBJFilename: v.OBJFilename,
		GLBFilename: v.GLBFilename,
		CreatedAt:   v.CreatedAt,
		Options:     make([]optionModel, len(v.Options)),
	}
	for i, opt := range v.Options {
		model.Options[i] = optionModel{
			VoteID:   int64(v.ID),
			OptionID: int(opt.ID),
			Text:     opt.Text,
			Reason:   opt.Reason,
		}
	}
	return model
}

func (m voteModel) toDomain() domain.Vote {
	v := domain.Vote{
		ID:          domain.VoteID(m.ID),
		Title:       m.Title,
		PDFFilename: m.PDFFilename,
		OBJFilename: m.OBJFilename,
		GLBFilename: m.GLBFilename,
		CreatedAt:   m.CreatedAt,
		Options:     make([]domain.Option, len(m.Options)),
		Reasons:     []domain.Annotation{},
	}
	for i, opt := range m.Options {
		v.Options[i] = domain.Option{
			ID:     domain.OptionID(opt.OptionID),
			Text:   opt.Text,
			Reason: opt.Reason,
		}
	}
	return v
}

// Create insere votação e opções na mesma transação.
func (r *VoteRepository) Create(ctx context.Context, v domain.Vote) error {
	model := fromDomainVote(v)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("gorm votes: inserir: %w", err)
	}
	return nil
}

// List devolve as votações na ordem de criação, com opções na ordem dos ids.
func (r *VoteRepository) List(ctx context.Context) ([]domain.Vote, error) {
	var models []voteModel
	if err := r.db.WithContext(ctx).
		Preload("Options", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("option_id ASC")
		}).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("gorm votes: listar: %w", err)
	}

	result := make([]domain.Vote, len(models))
	for i, model := range models {
		result[i] = model.toDomain()
	}
	return result, nil
}

var _ domain.VoteRepository = (*VoteRepository)(nil)
