package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/keiba-predictor/internal/models"
)

// MemoryModelRepository keeps the registry in process memory. It backs the
// pipeline when no database is configured.
type MemoryModelRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*models.Model
	byName map[string][]uuid.UUID
}

// NewMemoryModelRepository creates an empty in-memory registry
func NewMemoryModelRepository() *MemoryModelRepository {
	return &MemoryModelRepository{
		byID:   make(map[uuid.UUID]*models.Model),
		byName: make(map[string][]uuid.UUID),
	}
}

// Create stores a copy of model
func (r *MemoryModelRepository) Create(_ context.Context, model *models.Model) error {
	if err := model.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[model.ID]; ok {
		return models.ErrDuplicateKey
	}
	for _, id := range r.byName[model.Name] {
		if r.byID[id].Version == model.Version {
			return models.ErrDuplicateKey
		}
	}

	now := time.Now().UTC()
	model.CreatedAt, model.UpdatedAt = now, now
	stored := *model
	r.byID[model.ID] = &stored
	r.byName[model.Name] = append(r.byName[model.Name], model.ID)
	return nil
}

// GetByID retrieves a model by ID
func (r *MemoryModelRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *m
	return &out, nil
}

// GetLatest retrieves the most recently trained model with the given name
func (r *MemoryModelRepository) GetLatest(ctx context.Context, name string) (*models.Model, error) {
	list, _ := r.List(ctx, name, 1)
	if len(list) == 0 {
		return nil, models.ErrNotFound
	}
	return list[0], nil
}

// List retrieves up to limit models with the given name, newest first
func (r *MemoryModelRepository) List(_ context.Context, name string, limit int) ([]*models.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Model, 0, len(r.byName[name]))
	for _, id := range r.byName[name] {
		m := *r.byID[id]
		out = append(out, &m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TrainedAt.After(out[j].TrainedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SetActive sets a model as active and deactivates other versions
func (r *MemoryModelRepository) SetActive(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	now := time.Now().UTC()
	for _, other := range r.byName[target.Name] {
		m := r.byID[other]
		m.Active = other == id
		m.UpdatedAt = now
	}
	return nil
}
