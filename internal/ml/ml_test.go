package ml

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-predictor/internal/datasource"
	"github.com/yourusername/keiba-predictor/internal/features"
	"github.com/yourusername/keiba-predictor/internal/models"
	"github.com/yourusername/keiba-predictor/internal/preprocess"
)

func trainingTable(t *testing.T, races int) dataframe.DataFrame {
	t.Helper()
	raw, err := datasource.NewSyntheticGenerator(races, 42).Fetch(context.Background(), datasource.DateRange{})
	require.NoError(t, err)
	pre, err := preprocess.New(nil).Transform(raw)
	require.NoError(t, err)
	return features.Build(pre)
}

func smallParams() ForestParams {
	p := DefaultForestParams()
	p.NEstimators = 15
	return p
}

func trainedPredictor(t *testing.T) (*Predictor, dataframe.DataFrame) {
	t.Helper()
	df := trainingTable(t, 30)
	p := NewPredictor(smallParams(), 3, nil)
	_, err := p.Train(context.Background(), df)
	require.NoError(t, err)
	return p, df
}

func TestROCAUC(t *testing.T) {
	auc, err := ROCAUC([]float64{0.9, 0.8, 0.3, 0.1}, []int{1, 1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, auc, 1e-12)

	auc, err = ROCAUC([]float64{0.1, 0.2, 0.8, 0.9}, []int{1, 1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, auc, 1e-12)

	// all scores tied is chance level
	auc, err = ROCAUC([]float64{0.5, 0.5, 0.5, 0.5}, []int{1, 0, 1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, auc, 1e-12)

	// one positive ranked between two negatives
	auc, err = ROCAUC([]float64{0.9, 0.5, 0.1}, []int{0, 1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, auc, 1e-12)

	_, err = ROCAUC([]float64{0.1, 0.2}, []int{1, 1})
	assert.ErrorIs(t, err, ErrSingleClass)
}

func TestStratifiedKFold(t *testing.T) {
	y := make([]int, 100)
	for i := 0; i < 20; i++ {
		y[i*5] = 1
	}

	folds := StratifiedKFold(y, 5, 42)
	require.Len(t, folds, 5)

	seen := map[int]bool{}
	for _, fold := range folds {
		assert.Len(t, fold, 20)
		pos := 0
		for _, r := range fold {
			assert.False(t, seen[r], "row %d in two folds", r)
			seen[r] = true
			pos += y[r]
		}
		assert.Equal(t, 4, pos, "each fold keeps the class ratio")
	}
	assert.Len(t, seen, 100)

	assert.Equal(t, folds, StratifiedKFold(y, 5, 42))
}

func TestRandomForestSeparable(t *testing.T) {
	var X [][]float64
	var y []int
	for i := 0; i < 60; i++ {
		v := float64(i)
		X = append(X, []float64{v, float64(i % 7)})
		if i >= 30 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}

	rf := NewRandomForest(ForestParams{NEstimators: 25, Seed: 1})
	require.NoError(t, rf.Fit(context.Background(), X, y))

	probs := rf.PredictProba([][]float64{{5, 3}, {55, 3}})
	assert.Less(t, probs[0], 0.3)
	assert.Greater(t, probs[1], 0.7)

	assert.InDelta(t, 1.0, rf.Importances[0]+rf.Importances[1], 1e-9)
	assert.Greater(t, rf.Importances[0], rf.Importances[1])
}

func TestRandomForestDeterministic(t *testing.T) {
	df := trainingTable(t, 10)
	a := NewPredictor(smallParams(), 3, nil)
	b := NewPredictor(smallParams(), 3, nil)

	ra, err := a.Train(context.Background(), df)
	require.NoError(t, err)
	rb, err := b.Train(context.Background(), df)
	require.NoError(t, err)
	assert.Equal(t, ra.CVScores, rb.CVScores)

	pa, err := a.PredictProba(df)
	require.NoError(t, err)
	pb, err := b.PredictProba(df)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestRandomForestEmpty(t *testing.T) {
	err := NewRandomForest(DefaultForestParams()).Fit(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoTrainingData)
}

func TestTrainResult(t *testing.T) {
	df := trainingTable(t, 30)
	p := NewPredictor(smallParams(), 5, nil)

	res, err := p.Train(context.Background(), df)
	require.NoError(t, err)

	assert.Equal(t, df.Nrow(), res.NSamples)
	assert.Equal(t, len(AllFeatureColumns()), res.NFeatures)
	assert.Equal(t, AllFeatureColumns(), p.FeatureColumns())
	assert.NotEmpty(t, res.CVScores)
	assert.GreaterOrEqual(t, res.CVAUCMean, 0.0)
	assert.LessOrEqual(t, res.CVAUCMean, 1.0)
	assert.GreaterOrEqual(t, res.CVAUCStd, 0.0)
	assert.True(t, p.IsTrained())
	assert.NotEqual(t, [16]byte{}, [16]byte(p.ID()))
}

func TestTrainUsesPresentColumnsOnly(t *testing.T) {
	df := trainingTable(t, 20).Drop([]string{features.ColOddsNorm, models.ColAge})
	p := NewPredictor(smallParams(), 3, nil)

	res, err := p.Train(context.Background(), df)
	require.NoError(t, err)
	assert.Equal(t, len(AllFeatureColumns())-2, res.NFeatures)
	assert.NotContains(t, p.FeatureColumns(), features.ColOddsNorm)
}

func TestTrainErrors(t *testing.T) {
	p := NewPredictor(smallParams(), 3, nil)

	_, err := p.Train(context.Background(), trainingTable(t, 5).Drop(preprocess.ColIsWin))
	assert.ErrorIs(t, err, ErrMissingTarget)

	empty := dataframe.New(series.New([]int{}, series.Int, preprocess.ColIsWin))
	_, err = p.Train(context.Background(), empty)
	assert.ErrorIs(t, err, ErrNoTrainingData)

	noFeatures := dataframe.New(series.New([]int{0, 1}, series.Int, preprocess.ColIsWin))
	_, err = p.Train(context.Background(), noFeatures)
	assert.ErrorIs(t, err, ErrNoTrainingData)

	assert.False(t, p.IsTrained())
}

func TestPredictBeforeTraining(t *testing.T) {
	p := NewPredictor(smallParams(), 3, nil)
	df := trainingTable(t, 2)

	_, err := p.PredictProba(df)
	assert.ErrorIs(t, err, ErrModelNotTrained)
	_, err = p.PredictRace(df)
	assert.ErrorIs(t, err, ErrModelNotTrained)
	_, err = p.FeatureImportances()
	assert.ErrorIs(t, err, ErrModelNotTrained)
	_, err = p.Save(t.TempDir())
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestPredictProbaRange(t *testing.T) {
	p, df := trainedPredictor(t)

	probs, err := p.PredictProba(df)
	require.NoError(t, err)
	require.Len(t, probs, df.Nrow())
	for _, v := range probs {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestPredictProbaMissingColumn(t *testing.T) {
	p, df := trainedPredictor(t)

	probs, err := p.PredictProba(df.Drop(features.ColOddsNorm))
	require.NoError(t, err)
	assert.Len(t, probs, df.Nrow())
}

func TestPredictRaceSortedAndRanked(t *testing.T) {
	p, df := trainedPredictor(t)
	race := models.FilterRace(df, "20240003")
	require.Greater(t, race.Nrow(), 0)

	out, err := p.PredictRace(race)
	require.NoError(t, err)
	require.Equal(t, race.Nrow(), out.Nrow())

	probs := models.FloatColumn(out, ColWinProbability)
	for i := 1; i < len(probs); i++ {
		assert.GreaterOrEqual(t, probs[i-1], probs[i])
	}
	ranks, err := out.Col(ColPredictionRank).Int()
	require.NoError(t, err)
	for i, r := range ranks {
		assert.Equal(t, i+1, r)
	}
	assert.False(t, models.HasColumn(race, ColWinProbability), "input is not mutated")
}

func TestPredictRaceTiesKeepInputOrder(t *testing.T) {
	p, df := trainedPredictor(t)
	row := df.Subset([]int{0})
	dup := row.RBind(row).RBind(row)
	require.NoError(t, dup.Err)

	out, err := p.PredictRace(dup.Mutate(series.New([]string{"a", "b", "c"}, series.String, models.ColHorseName)))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, models.StringColumn(out, models.ColHorseName))
}

func TestFeatureImportancesSorted(t *testing.T) {
	p, _ := trainedPredictor(t)

	imps, err := p.FeatureImportances()
	require.NoError(t, err)
	require.Len(t, imps, len(p.FeatureColumns()))

	sum := 0.0
	for i, imp := range imps {
		sum += imp.Score
		if i > 0 {
			assert.GreaterOrEqual(t, imps[i-1].Score, imp.Score)
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p, df := trainedPredictor(t)
	dir := filepath.Join(t.TempDir(), "models")

	before, err := p.PredictProba(df)
	require.NoError(t, err)

	path, err := p.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, ArtifactPath(dir), path)
	assert.FileExists(t, path)

	loaded := NewPredictor(DefaultForestParams(), 5, nil)
	require.NoError(t, loaded.Load(dir))
	assert.Equal(t, p.FeatureColumns(), loaded.FeatureColumns())
	assert.Equal(t, p.ID(), loaded.ID())
	assert.Equal(t, 15, loaded.Params().NEstimators)

	after, err := loaded.PredictProba(df)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.InDelta(t, before[i], after[i], 1e-12)
	}

	// re-save overwrites the single artifact
	_, err = loaded.Save(dir)
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadNotFound(t *testing.T) {
	err := NewPredictor(DefaultForestParams(), 5, nil).Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrModelNotFound))
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(ArtifactPath(dir), []byte("not a model"), 0o644))

	err := NewPredictor(DefaultForestParams(), 5, nil).Load(dir)
	assert.ErrorIs(t, err, ErrInvalidArtifact)
}

func TestMatrixImputes(t *testing.T) {
	X := matrix([][]float64{{1, math.NaN()}, nil}, []float64{7, 9}, 2)
	assert.Equal(t, [][]float64{{1, 9}, {7, 9}}, X)
}
