package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-predictor/internal/config"
	"github.com/yourusername/keiba-predictor/internal/datasource"
	"github.com/yourusername/keiba-predictor/internal/ml"
	"github.com/yourusername/keiba-predictor/internal/models"
	"github.com/yourusername/keiba-predictor/internal/repository"
)

type staticSource struct {
	df  dataframe.DataFrame
	err error
}

func (s staticSource) Name() string { return "static" }

func (s staticSource) Fetch(context.Context, datasource.DateRange) (dataframe.DataFrame, error) {
	return s.df, s.err
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testOptions(t *testing.T) Options {
	params := ml.DefaultForestParams()
	params.NEstimators = 10
	return Options{ModelDir: t.TempDir(), Forest: params, CVFolds: 3}
}

func testRange() datasource.DateRange {
	dr, _ := datasource.ParseDateRange("20240101", "20241231")
	return dr
}

func newTestPipeline(t *testing.T, registry repository.ModelRepository) *RacePipeline {
	return NewRacePipeline(datasource.NewSyntheticGenerator(20, 42), registry, testOptions(t), quietLogger())
}

func TestLoadFeatures(t *testing.T) {
	p := newTestPipeline(t, nil)

	df, err := p.LoadFeatures(context.Background(), testRange())
	require.NoError(t, err)
	assert.Greater(t, df.Nrow(), 0)
	for _, c := range ml.AllFeatureColumns() {
		assert.True(t, models.HasColumn(df, c), c)
	}
}

func TestLoadFeaturesFetchError(t *testing.T) {
	srcErr := datasource.NewDataSourceError("feed", datasource.ErrCodeAuthenticationFailed, "bad key", datasource.ErrAuthenticationFailed)
	p := NewRacePipeline(staticSource{err: srcErr}, nil, testOptions(t), quietLogger())

	_, err := p.LoadFeatures(context.Background(), testRange())
	assert.ErrorIs(t, err, datasource.ErrAuthenticationFailed)
	assert.Equal(t, datasource.ErrCodeAuthenticationFailed, fetchStatus(err))
	assert.Equal(t, "error", fetchStatus(errors.New("boom")))
}

func TestTrainSavesAndRegisters(t *testing.T) {
	registry := repository.NewMemoryModelRepository()
	p := newTestPipeline(t, registry)

	result, err := p.Train(context.Background(), testRange())
	require.NoError(t, err)
	assert.Greater(t, result.NSamples, 0)
	assert.FileExists(t, ml.ArtifactPath(p.opts.ModelDir))

	latest, err := registry.GetLatest(context.Background(), ml.ModelName)
	require.NoError(t, err)
	assert.Equal(t, result.ModelID, latest.ID)
	assert.True(t, latest.Active)
	assert.Equal(t, ml.ArtifactPath(p.opts.ModelDir), latest.Path)

	auc, err := latest.Metric("cv_roc_auc_mean")
	require.NoError(t, err)
	assert.InDelta(t, result.CVAUCMean, auc, 1e-12)
}

func TestRetrainReplacesActiveModel(t *testing.T) {
	registry := repository.NewMemoryModelRepository()
	p := newTestPipeline(t, registry)
	ctx := context.Background()

	require.NoError(t, p.Retrain(ctx, testRange()))
	require.NoError(t, p.Retrain(ctx, testRange()))

	list, err := registry.List(ctx, ml.ModelName, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)

	active := 0
	for _, m := range list {
		if m.Active {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestTrainFailsWithoutData(t *testing.T) {
	p := NewRacePipeline(staticSource{df: dataframe.DataFrame{}}, nil, testOptions(t), quietLogger())

	_, err := p.Train(context.Background(), testRange())
	assert.ErrorIs(t, err, ml.ErrNoTrainingData)
}

func TestPredictTrainsWhenNoModelSaved(t *testing.T) {
	p := newTestPipeline(t, nil)
	_, err := os.Stat(ml.ArtifactPath(p.opts.ModelDir))
	require.True(t, os.IsNotExist(err))

	res, err := p.Predict(context.Background(), testRange(), "")
	require.NoError(t, err)

	assert.Equal(t, "20240001", res.RaceID, "first race in load order")
	assert.FileExists(t, ml.ArtifactPath(p.opts.ModelDir))
	assert.Greater(t, res.Ranked.Nrow(), 0)

	probs := models.FloatColumn(res.Ranked, ml.ColWinProbability)
	for i := 1; i < len(probs); i++ {
		assert.GreaterOrEqual(t, probs[i-1], probs[i])
	}
}

func TestPredictUsesSavedModel(t *testing.T) {
	opts := testOptions(t)
	trainer := NewRacePipeline(datasource.NewSyntheticGenerator(20, 42), nil, opts, quietLogger())
	result, err := trainer.Train(context.Background(), testRange())
	require.NoError(t, err)

	predictor := NewRacePipeline(datasource.NewSyntheticGenerator(20, 42), nil, opts, quietLogger())
	res, err := predictor.Predict(context.Background(), testRange(), "20240005")
	require.NoError(t, err)

	assert.Equal(t, "20240005", res.RaceID)
	assert.Equal(t, result.ModelID.String(), res.ModelID)
}

func TestCheckModel(t *testing.T) {
	opts := testOptions(t)
	p := NewRacePipeline(datasource.NewSyntheticGenerator(20, 42), nil, opts, quietLogger())
	assert.ErrorIs(t, p.CheckModel(context.Background()), ml.ErrModelNotFound)

	_, err := p.Train(context.Background(), testRange())
	require.NoError(t, err)
	assert.NoError(t, p.CheckModel(context.Background()))

	// A fresh pipeline finds the artifact on disk.
	other := NewRacePipeline(datasource.NewSyntheticGenerator(20, 42), nil, opts, quietLogger())
	assert.NoError(t, other.CheckModel(context.Background()))
}

func TestPredictUnknownRace(t *testing.T) {
	p := newTestPipeline(t, nil)

	_, err := p.Predict(context.Background(), testRange(), "19990101")
	assert.ErrorIs(t, err, ErrRaceNotFound)
}

func TestPredictNoRaces(t *testing.T) {
	p := NewRacePipeline(staticSource{df: dataframe.DataFrame{}}, nil, testOptions(t), quietLogger())

	_, err := p.Predict(context.Background(), testRange(), "")
	assert.ErrorIs(t, err, ErrNoRaces)
}

func TestPredictCachesRankedRace(t *testing.T) {
	opts := testOptions(t)
	opts.PredictionCacheTTL = time.Minute
	p := NewRacePipeline(datasource.NewSyntheticGenerator(20, 42), nil, opts, quietLogger())
	ctx := context.Background()

	first, err := p.Predict(ctx, testRange(), "20240002")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := p.Predict(ctx, testRange(), "20240002")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Ranked.Records(), second.Ranked.Records())
}

func TestSelectRace(t *testing.T) {
	raw, err := datasource.NewSyntheticGenerator(3, 7).Fetch(context.Background(), testRange())
	require.NoError(t, err)

	id, race, err := SelectRace(raw, "")
	require.NoError(t, err)
	assert.Equal(t, "20240001", id)
	for _, v := range models.StringColumn(race, models.ColRaceID) {
		assert.Equal(t, "20240001", v)
	}

	id, _, err = SelectRace(raw, "20240003")
	require.NoError(t, err)
	assert.Equal(t, "20240003", id)

	_, _, err = SelectRace(raw, "nope")
	assert.ErrorIs(t, err, ErrRaceNotFound)

	_, _, err = SelectRace(dataframe.DataFrame{}, "")
	assert.ErrorIs(t, err, ErrNoRaces)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Model.Dir = "artifacts"
	cfg.Model.NEstimators = 50
	cfg.Model.MaxDepth = 8
	cfg.Model.CVFolds = 4
	cfg.Model.Seed = 7
	cfg.DataSource.CacheTTLSeconds = 30

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "artifacts", opts.ModelDir)
	assert.Equal(t, 50, opts.Forest.NEstimators)
	assert.Equal(t, 8, opts.Forest.MaxDepth)
	assert.Equal(t, int64(7), opts.Forest.Seed)
	assert.Equal(t, 1, opts.Forest.MinSamplesLeaf)
	assert.Equal(t, 4, opts.CVFolds)
	assert.Equal(t, 30*time.Second, opts.PredictionCacheTTL)
}
