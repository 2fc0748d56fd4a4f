package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Model represents a trained predictor artifact registered after a training run
type Model struct {
	ID              uuid.UUID       `db:"id" json:"id" validate:"required,uuid4"`
	Name            string          `db:"name" json:"name" validate:"required"`
	Version         string          `db:"version" json:"version" validate:"required"`
	ModelType       string          `db:"model_type" json:"model_type" validate:"required"`
	Path            string          `db:"path" json:"path" validate:"required"`
	Metrics         json.RawMessage `db:"metrics" json:"metrics"`
	Hyperparameters json.RawMessage `db:"hyperparameters" json:"hyperparameters"`
	FeatureColumns  []string        `db:"feature_columns" json:"feature_columns"`
	TrainedAt       time.Time       `db:"trained_at" json:"trained_at" validate:"required"`
	Active          bool            `db:"active" json:"active"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Validate checks the fields every registry needs before insert.
func (m *Model) Validate() error {
	if m.ID == uuid.Nil {
		return ErrInvalidID
	}
	if m.Name == "" {
		return ErrModelNameRequired
	}
	return nil
}

// Metric returns a numeric training metric, ErrNotFound when it was not recorded.
func (m *Model) Metric(name string) (float64, error) {
	var metrics map[string]json.RawMessage
	if len(m.Metrics) > 0 {
		if err := json.Unmarshal(m.Metrics, &metrics); err != nil {
			return 0, fmt.Errorf("invalid metrics JSON: %w", err)
		}
	}

	raw, ok := metrics[name]
	if !ok {
		return 0, fmt.Errorf("%w: metric %s", ErrNotFound, name)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("metric %s is not numeric: %w", name, err)
	}
	return v, nil
}
