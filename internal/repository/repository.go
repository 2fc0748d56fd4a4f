// Package repository provides persistence for the model registry.
package repository

import (
	"github.com/yourusername/keiba-predictor/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Model ModelRepository
}

// NewRepositories returns PostgreSQL repositories, or in-memory ones when db
// is nil because the database is disabled.
func NewRepositories(db *database.DB) *Repositories {
	if db == nil {
		return &Repositories{Model: NewMemoryModelRepository()}
	}
	return &Repositories{Model: NewPostgresModelRepository(db)}
}
