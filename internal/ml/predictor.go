package ml

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-predictor/internal/features"
	"github.com/yourusername/keiba-predictor/internal/logger"
	"github.com/yourusername/keiba-predictor/internal/models"
	"github.com/yourusername/keiba-predictor/internal/preprocess"
)

// ArtifactFile is the fixed file name of the persisted model in a model directory.
const ArtifactFile = "race_predictor.gob"

// Prediction column names.
const (
	ColWinProbability = "win_probability"
	ColPredictionRank = "prediction_rank"
)

// ModelName identifies this model in logs and the registry.
const ModelName = "race_predictor"

// ModelType is the registry model_type of a Predictor.
const ModelType = "random_forest"

// AllFeatureColumns returns base and engineered features in training order.
func AllFeatureColumns() []string {
	return append(preprocess.FeatureColumns(), features.EngineeredColumns()...)
}

// TrainingResult summarises a training run.
type TrainingResult struct {
	ModelID   uuid.UUID
	CVAUCMean float64
	CVAUCStd  float64
	CVScores  []float64
	NSamples  int
	NFeatures int
	Duration  time.Duration
}

// FeatureImportance is the normalised importance of one feature.
type FeatureImportance struct {
	Name  string
	Score float64
}

// Predictor wraps a random forest together with the ordered feature list and
// per-feature training medians that keep inference consistent with training.
type Predictor struct {
	params  ForestParams
	cvFolds int
	logger  *logger.MLLogger

	forest         *RandomForest
	featureColumns []string
	medians        []float64
	id             uuid.UUID
	trainedAt      time.Time
}

// artifact is the gob-encoded form of a trained Predictor.
type artifact struct {
	ID             string
	TrainedAt      time.Time
	FeatureColumns []string
	Medians        []float64
	Forest         RandomForest
}

// NewPredictor creates an untrained predictor.
func NewPredictor(params ForestParams, cvFolds int, log *logrus.Logger) *Predictor {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	if cvFolds < 2 {
		cvFolds = DefaultCVFolds
	}
	return &Predictor{
		params:  params,
		cvFolds: cvFolds,
		logger:  logger.NewMLLogger(log),
	}
}

// IsTrained reports whether a fitted model is held.
func (p *Predictor) IsTrained() bool {
	return p.forest != nil
}

// FeatureColumns returns the ordered feature list the model was fitted on.
func (p *Predictor) FeatureColumns() []string {
	return append([]string(nil), p.featureColumns...)
}

// ID returns the identifier of the fitted model.
func (p *Predictor) ID() uuid.UUID {
	return p.id
}

// TrainedAt returns when the model was fitted.
func (p *Predictor) TrainedAt() time.Time {
	return p.trainedAt
}

// Params returns the forest hyperparameters.
func (p *Predictor) Params() ForestParams {
	return p.params
}

// Train cross-validates and then fits on every row of df.
func (p *Predictor) Train(ctx context.Context, df dataframe.DataFrame) (TrainingResult, error) {
	start := time.Now()
	if df.Err != nil {
		return TrainingResult{}, fmt.Errorf("invalid training table: %w", df.Err)
	}
	if df.Nrow() == 0 {
		return TrainingResult{}, ErrNoTrainingData
	}
	target := preprocess.TargetColumn()
	if !models.HasColumn(df, target) {
		return TrainingResult{}, fmt.Errorf("%w: %s", ErrMissingTarget, target)
	}

	var cols []string
	for _, c := range AllFeatureColumns() {
		if models.HasColumn(df, c) {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return TrainingResult{}, fmt.Errorf("%w: no feature columns present", ErrNoTrainingData)
	}

	medians := make([]float64, len(cols))
	columns := make([][]float64, len(cols))
	for j, c := range cols {
		columns[j] = models.FloatColumn(df, c)
		if m, ok := preprocess.Median(columns[j]); ok {
			medians[j] = m
		}
	}
	X := matrix(columns, medians, df.Nrow())

	y := make([]int, df.Nrow())
	for i, v := range models.FloatColumn(df, target) {
		if v == 1 {
			y[i] = 1
		}
	}

	cv, err := CrossValidate(ctx, X, y, p.cvFolds, p.params, p.logger)
	if err != nil {
		return TrainingResult{}, fmt.Errorf("cross-validation failed: %w", err)
	}

	forest := NewRandomForest(p.params)
	if err := forest.Fit(ctx, X, y); err != nil {
		return TrainingResult{}, fmt.Errorf("fit failed: %w", err)
	}

	p.forest = forest
	p.featureColumns = cols
	p.medians = medians
	p.id = uuid.New()
	p.trainedAt = time.Now().UTC()

	result := TrainingResult{
		ModelID:   p.id,
		CVAUCMean: cv.Mean,
		CVAUCStd:  cv.Std,
		CVScores:  cv.Scores,
		NSamples:  df.Nrow(),
		NFeatures: len(cols),
		Duration:  time.Since(start),
	}
	p.logger.LogModelTraining(ModelName, result.Duration.Seconds(),
		map[string]float64{"cv_roc_auc_mean": cv.Mean, "cv_roc_auc_std": cv.Std},
		map[string]interface{}{"n_estimators": forest.Params.NEstimators, "seed": forest.Params.Seed, "n_features": len(cols)})
	return result, nil
}

// PredictProba returns the win probability of every row in input order.
// Stored feature columns absent from df are filled with their training
// median, as are missing cells.
func (p *Predictor) PredictProba(df dataframe.DataFrame) ([]float64, error) {
	if !p.IsTrained() {
		return nil, ErrModelNotTrained
	}
	if df.Err != nil {
		p.logger.LogMLPredictionError(ModelType, df.Err.Error())
		return nil, fmt.Errorf("invalid table: %w", df.Err)
	}

	columns := make([][]float64, len(p.featureColumns))
	for j, c := range p.featureColumns {
		columns[j] = models.FloatColumn(df, c)
		if columns[j] == nil {
			p.logger.LogMissingFeature(c, p.medians[j])
		}
	}
	return p.forest.PredictProba(matrix(columns, p.medians, df.Nrow())), nil
}

// PredictRace adds win_probability, sorts by it descending (ties keep input
// order) and numbers the rows 1..N in prediction_rank.
func (p *Predictor) PredictRace(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	probs, err := p.PredictProba(df)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if df.Ncol() == 0 {
		return df, nil
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return probs[order[a]] > probs[order[b]] })

	ranks := make([]int, len(order))
	for i := range ranks {
		ranks[i] = i + 1
	}

	out := models.WithFloats(df, ColWinProbability, probs).Subset(order)
	out = models.WithInts(out, ColPredictionRank, ranks)
	if out.Err != nil {
		p.logger.LogMLPredictionError(ModelType, out.Err.Error())
		return dataframe.DataFrame{}, out.Err
	}

	if len(order) > 0 {
		raceID := ""
		if ids := models.StringColumn(out, models.ColRaceID); len(ids) > 0 {
			raceID = ids[0]
		}
		top := ""
		if names := models.StringColumn(out, models.ColHorseName); len(names) > 0 {
			top = names[0]
		}
		p.logger.LogRacePrediction(raceID, len(order), top, probs[order[0]])
	}
	return out, nil
}

// FeatureImportances returns mean-decrease-impurity scores, highest first.
func (p *Predictor) FeatureImportances() ([]FeatureImportance, error) {
	if !p.IsTrained() {
		return nil, ErrModelNotTrained
	}
	out := make([]FeatureImportance, len(p.featureColumns))
	for j, c := range p.featureColumns {
		out[j] = FeatureImportance{Name: c, Score: p.forest.Importances[j]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out, nil
}

// ArtifactPath returns the artifact location inside dir.
func ArtifactPath(dir string) string {
	return filepath.Join(dir, ArtifactFile)
}

// Save writes the model to dir, replacing any previous artifact atomically.
func (p *Predictor) Save(dir string) (string, error) {
	if !p.IsTrained() {
		return "", ErrModelNotTrained
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ArtifactFile+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	a := artifact{
		ID:             p.id.String(),
		TrainedAt:      p.trainedAt,
		FeatureColumns: p.featureColumns,
		Medians:        p.medians,
		Forest:         *p.forest,
	}
	if err := gob.NewEncoder(tmp).Encode(&a); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to encode model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write model: %w", err)
	}

	path := ArtifactPath(dir)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move model into place: %w", err)
	}
	p.logger.LogModelPersisted("saved", path, len(p.featureColumns))
	return path, nil
}

// Load replaces the held model with the artifact in dir.
func (p *Predictor) Load(dir string) error {
	path := ArtifactPath(dir)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return fmt.Errorf("failed to open model: %w", err)
	}
	defer f.Close()

	var a artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if len(a.FeatureColumns) == 0 || len(a.Medians) != len(a.FeatureColumns) || len(a.Forest.Trees) == 0 {
		return fmt.Errorf("%w: %s is incomplete", ErrInvalidArtifact, path)
	}
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return fmt.Errorf("%w: bad id: %v", ErrInvalidArtifact, err)
	}

	forest := a.Forest
	p.forest = &forest
	p.params = forest.Params
	p.featureColumns = a.FeatureColumns
	p.medians = a.Medians
	p.id = id
	p.trainedAt = a.TrainedAt
	p.logger.LogModelPersisted("loaded", path, len(a.FeatureColumns))
	return nil
}

// matrix builds row-major features, replacing NaN cells and nil columns with medians.
func matrix(columns [][]float64, medians []float64, rows int) [][]float64 {
	X := make([][]float64, rows)
	flat := make([]float64, rows*len(columns))
	for i := range X {
		X[i] = flat[i*len(columns) : (i+1)*len(columns)]
		for j, col := range columns {
			if col == nil || math.IsNaN(col[i]) {
				X[i][j] = medians[j]
			} else {
				X[i][j] = col[i]
			}
		}
	}
	return X
}
