package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/keiba-predictor/internal/models"
)

// ModelRepository defines the interface for model registry access
type ModelRepository interface {
	Create(ctx context.Context, model *models.Model) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Model, error)
	GetLatest(ctx context.Context, name string) (*models.Model, error)
	List(ctx context.Context, name string, limit int) ([]*models.Model, error)
	SetActive(ctx context.Context, id uuid.UUID) error
}
