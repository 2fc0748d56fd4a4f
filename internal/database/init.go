package database

import (
	"context"
	"fmt"

	"github.com/yourusername/keiba-predictor/internal/config"
)

// Schema creates the model registry table.
const Schema = `
CREATE TABLE IF NOT EXISTS models (
	id              UUID PRIMARY KEY,
	name            TEXT NOT NULL,
	version         TEXT NOT NULL,
	model_type      TEXT NOT NULL,
	path            TEXT NOT NULL,
	metrics         JSONB,
	hyperparameters JSONB,
	feature_columns TEXT[] NOT NULL DEFAULT '{}',
	trained_at      TIMESTAMPTZ NOT NULL,
	active          BOOLEAN NOT NULL DEFAULT false,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (name, version)
);
CREATE INDEX IF NOT EXISTS models_name_trained_at_idx ON models (name, trained_at DESC);
`

// Initialize connects to the registry database and ensures the schema exists.
// It returns nil, nil when the database is disabled.
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	if !cfg.Database.Enabled {
		return nil, nil
	}

	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies Schema. It is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
