// Pacote migrations centraliza as versões gormigrate aplicadas na inicialização.
package migrations

import (
	"fmt"

	gormigrate "github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	postgresstorage "github.com/marcelojr/votacao-3d/internal/platform/storage/postgres"
)

func Run(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migrations: db nulo")
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202501150001_votes_and_ballots",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(postgresstorage.Models()...)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("ballots", "vote_options", "votes")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrations: falha ao aplicar: %w", err)
	}

	return nil
}
