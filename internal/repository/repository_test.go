package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-predictor/internal/database"
	"github.com/yourusername/keiba-predictor/internal/models"
)

func newModel(name string, trainedAt time.Time) *models.Model {
	return &models.Model{
		ID:              uuid.New(),
		Name:            name,
		Version:         trainedAt.UTC().Format("20060102T150405.000000000"),
		ModelType:       "random_forest",
		Path:            "models/race_predictor.gob",
		Metrics:         json.RawMessage(`{"cv_roc_auc_mean":0.72}`),
		Hyperparameters: json.RawMessage(`{"n_estimators":200}`),
		FeatureColumns:  []string{"age", "popularity"},
		TrainedAt:       trainedAt.UTC().Truncate(time.Microsecond),
	}
}

// exerciseRepository runs the same behaviour checks against any implementation.
func exerciseRepository(t *testing.T, repo ModelRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	name := "race_predictor_" + uuid.NewString()[:8]
	base := time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)

	_, err := repo.GetLatest(ctx, name)
	assert.ErrorIs(t, err, models.ErrNotFound)

	older := newModel(name, base)
	newer := newModel(name, base.Add(24*time.Hour))
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	assert.False(t, newer.CreatedAt.IsZero())

	dup := newModel(name, base)
	assert.ErrorIs(t, repo.Create(ctx, dup), models.ErrDuplicateKey)

	noID := newModel(name, base.Add(48*time.Hour))
	noID.ID = uuid.Nil
	assert.ErrorIs(t, repo.Create(ctx, noID), models.ErrInvalidID)
	noName := newModel("", base.Add(48*time.Hour))
	assert.ErrorIs(t, repo.Create(ctx, noName), models.ErrModelNameRequired)

	latest, err := repo.GetLatest(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
	assert.Equal(t, []string{"age", "popularity"}, latest.FeatureColumns)

	got, err := repo.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.Version, got.Version)
	v, err := got.Metric("cv_roc_auc_mean")
	require.NoError(t, err)
	assert.Equal(t, 0.72, v)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	list, err := repo.List(ctx, name, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)

	require.NoError(t, repo.SetActive(ctx, older.ID))
	got, err = repo.GetByID(ctx, older.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	got, err = repo.GetByID(ctx, newer.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	assert.ErrorIs(t, repo.SetActive(ctx, uuid.New()), models.ErrNotFound)
}

func TestMemoryModelRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryModelRepository())
}

func TestMemoryModelRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryModelRepository()
	ctx := context.Background()

	m := newModel("race_predictor", time.Now())
	require.NoError(t, repo.Create(ctx, m))
	m.Path = "mutated"

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "models/race_predictor.gob", got.Path)
}

func TestNewRepositoriesWithoutDatabase(t *testing.T) {
	repos := NewRepositories(nil)
	assert.IsType(t, &MemoryModelRepository{}, repos.Model)
}

func TestPostgresModelRepository(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	repos := NewRepositories(db)
	assert.IsType(t, &PostgresModelRepository{}, repos.Model)
	exerciseRepository(t, repos.Model)
}
