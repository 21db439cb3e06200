package db

import (
	"context"
	"fmt"

	"dinner-ticketing/internal/models"

	"github.com/uptrace/bun"
)

// CreateSchema creates the orders table straight from the model. Production
// uses the versioned SQL migrations; this is for SQLite-backed tests and
// local tooling.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*models.Order)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create orders table: %w", err)
	}
	return nil
}
