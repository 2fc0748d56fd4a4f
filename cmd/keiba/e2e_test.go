//go:build e2e

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-predictor/internal/ml"
	"github.com/yourusername/keiba-predictor/internal/service"
)

const skipE2E = "Skipping E2E test in short mode"

func writeE2EConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	body := `app:
  name: keiba-predictor
  environment: development
  log_level: error

data_source:
  synthetic_races: 20
  seed: 42

model:
  dir: ` + filepath.Join(dir, "models") + `
  n_estimators: 10
  cv_folds: 3

metrics:
  enabled: true
  textfile_path: ` + filepath.Join(dir, "keiba.prom") + `
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	cleanup()
	return err
}

func TestE2ETrainThenPredict(t *testing.T) {
	if testing.Short() {
		t.Skip(skipE2E)
	}
	dir := t.TempDir()
	cfgPath := writeE2EConfig(t, dir)

	require.NoError(t, execute(t, "train", "--config", cfgPath))
	_, err := os.Stat(ml.ArtifactPath(filepath.Join(dir, "models")))
	require.NoError(t, err)

	out := filepath.Join(dir, "ranked.xlsx")
	require.NoError(t, execute(t, "predict", "--config", cfgPath, "--race-id", "20240003", "--output", out))

	_, err = os.Stat(out)
	assert.NoError(t, err)

	prom, err := os.ReadFile(filepath.Join(dir, "keiba.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "keiba_races_predicted_total")
}

func TestE2EDefaultRunsAll(t *testing.T) {
	if testing.Short() {
		t.Skip(skipE2E)
	}
	dir := t.TempDir()
	cfgPath := writeE2EConfig(t, dir)

	require.NoError(t, execute(t, "--config", cfgPath, "--race-id", "", "--output", ""))
	_, err := os.Stat(ml.ArtifactPath(filepath.Join(dir, "models")))
	assert.NoError(t, err)
}

func TestE2EUnknownRaceFails(t *testing.T) {
	if testing.Short() {
		t.Skip(skipE2E)
	}
	dir := t.TempDir()
	cfgPath := writeE2EConfig(t, dir)

	err := execute(t, "predict", "--config", cfgPath, "--race-id", "19990101", "--output", "")
	assert.ErrorIs(t, err, service.ErrRaceNotFound)
}
