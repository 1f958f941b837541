package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"sebencms/internal/models"
	"sebencms/internal/slug"
)

// starterCategories are created on first seed so the editor has something
// to attach posts to.
var starterCategories = []string{"News", "Guides", "Company"}

// Seed populates the database with initial data: the default chatbot flow
// built from steps and a few starter categories. Existing rows are left
// untouched, so running it twice is safe.
func Seed(ctx context.Context, db *sql.DB, steps []models.FlowStep) error {
	encoded, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("seed encode steps: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO chatbot_flows (key, steps, is_active)
		VALUES ('default', $1, TRUE)
		ON CONFLICT (key) DO NOTHING
	`, string(encoded))
	if err != nil {
		return fmt.Errorf("seed chatbot flow: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("seeded default chatbot flow")
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}
	if count == 0 {
		for i, name := range starterCategories {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO categories (name, slug, order_column)
				VALUES ($1, $2, $3)
			`, name, slug.Generate(name), i)
			if err != nil {
				return fmt.Errorf("seed category %q: %w", name, err)
			}
		}
		slog.Info("seeded starter categories", "count", len(starterCategories))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}
	return nil
}
