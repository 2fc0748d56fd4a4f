package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-predictor/internal/config"
	"github.com/yourusername/keiba-predictor/internal/datasource"
	"github.com/yourusername/keiba-predictor/internal/features"
	"github.com/yourusername/keiba-predictor/internal/metrics"
	"github.com/yourusername/keiba-predictor/internal/ml"
	"github.com/yourusername/keiba-predictor/internal/models"
	"github.com/yourusername/keiba-predictor/internal/preprocess"
	"github.com/yourusername/keiba-predictor/internal/repository"
)

// topImportances is how many feature importances are logged after training.
const topImportances = 10

// predictionCacheSize bounds the number of ranked races kept in memory.
const predictionCacheSize = 1000

// Options configures a RacePipeline.
type Options struct {
	ModelDir           string
	Forest             ml.ForestParams
	CVFolds            int
	PredictionCacheTTL time.Duration
}

// OptionsFromConfig maps the model section of cfg to pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	params := ml.DefaultForestParams()
	if cfg.Model.NEstimators > 0 {
		params.NEstimators = cfg.Model.NEstimators
	}
	params.MaxDepth = cfg.Model.MaxDepth
	params.Seed = cfg.Model.Seed

	return Options{
		ModelDir:           cfg.Model.Dir,
		Forest:             params,
		CVFolds:            cfg.Model.CVFolds,
		PredictionCacheTTL: cfg.DataSource.CacheTTL(),
	}
}

// PredictionResult is a ranked race.
type PredictionResult struct {
	RaceID  string
	Ranked  dataframe.DataFrame
	ModelID string
	Cached  bool
}

// RacePipeline runs fetch → preprocess → features → train or predict.
type RacePipeline struct {
	source       datasource.Source
	preprocessor *preprocess.Preprocessor
	registry     repository.ModelRepository
	cache        *ml.PredictionCache
	opts         Options
	logger       *logrus.Logger

	mu        sync.Mutex
	predictor *ml.Predictor
}

// NewRacePipeline creates a pipeline. registry may be nil.
func NewRacePipeline(source datasource.Source, registry repository.ModelRepository, opts Options, logger *logrus.Logger) *RacePipeline {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.ModelDir == "" {
		opts.ModelDir = "models"
	}

	p := &RacePipeline{
		source:       source,
		preprocessor: preprocess.New(logger),
		registry:     registry,
		opts:         opts,
		logger:       logger,
	}
	if opts.PredictionCacheTTL > 0 {
		p.cache = ml.NewPredictionCache(opts.PredictionCacheTTL, predictionCacheSize)
	}
	return p
}

// LoadFeatures fetches the range and returns the preprocessed table with
// engineered features.
func (p *RacePipeline) LoadFeatures(ctx context.Context, dr datasource.DateRange) (dataframe.DataFrame, error) {
	start := time.Now()
	p.logger.WithFields(logrus.Fields{
		"source":     p.source.Name(),
		"date_range": dr.String(),
	}).Info("Loading race data")

	raw, err := p.source.Fetch(ctx, dr)
	if err != nil {
		metrics.RecordDataFetch(p.source.Name(), fetchStatus(err), time.Since(start).Seconds(), 0)
		return dataframe.DataFrame{}, fmt.Errorf("failed to fetch race data: %w", err)
	}
	metrics.RecordDataFetch(p.source.Name(), "success", time.Since(start).Seconds(), raw.Nrow())

	df, err := p.preprocessor.Transform(raw)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to preprocess race data: %w", err)
	}
	df = features.Build(df)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to build features: %w", df.Err)
	}

	p.logger.WithFields(logrus.Fields{
		"rows":    df.Nrow(),
		"columns": df.Ncol(),
	}).Info("Race data loaded")
	return df, nil
}

// Train loads the range, fits a new model and persists it.
func (p *RacePipeline) Train(ctx context.Context, dr datasource.DateRange) (ml.TrainingResult, error) {
	df, err := p.LoadFeatures(ctx, dr)
	if err != nil {
		metrics.RecordTrainingFailure()
		return ml.TrainingResult{}, err
	}
	return p.TrainOn(ctx, df)
}

// Retrain satisfies scheduler.Retrainer.
func (p *RacePipeline) Retrain(ctx context.Context, dr datasource.DateRange) error {
	_, err := p.Train(ctx, dr)
	return err
}

// TrainOn fits a new model on an already prepared table, saves it, records
// metrics and registers it.
func (p *RacePipeline) TrainOn(ctx context.Context, df dataframe.DataFrame) (ml.TrainingResult, error) {
	predictor := ml.NewPredictor(p.opts.Forest, p.opts.CVFolds, p.logger)

	result, err := predictor.Train(ctx, df)
	if err != nil {
		metrics.RecordTrainingFailure()
		return ml.TrainingResult{}, fmt.Errorf("training failed: %w", err)
	}

	path, err := predictor.Save(p.opts.ModelDir)
	if err != nil {
		metrics.RecordTrainingFailure()
		return ml.TrainingResult{}, err
	}

	p.logger.WithFields(logrus.Fields{
		"model_id":        result.ModelID,
		"cv_roc_auc_mean": result.CVAUCMean,
		"cv_roc_auc_std":  result.CVAUCStd,
		"n_samples":       result.NSamples,
		"n_features":      result.NFeatures,
		"path":            path,
	}).Info("Training complete")

	importances, err := predictor.FeatureImportances()
	if err != nil {
		return ml.TrainingResult{}, err
	}
	for i, imp := range importances {
		metrics.UpdateFeatureImportance(imp.Name, imp.Score)
		if i < topImportances {
			p.logger.WithFields(logrus.Fields{
				"rank":       i + 1,
				"feature":    imp.Name,
				"importance": imp.Score,
			}).Info("Feature importance")
		}
	}
	metrics.RecordTrainingSuccess(result.Duration.Seconds(), result.CVAUCMean, result.CVAUCStd, result.NSamples)

	p.register(ctx, predictor, result, path)

	p.mu.Lock()
	previous := p.predictor
	p.predictor = predictor
	p.mu.Unlock()
	if previous != nil && p.cache != nil {
		p.cache.Invalidate(previous.ID())
	}

	return result, nil
}

// register records the model in the registry. Failures are logged; the
// artifact on disk stays authoritative.
func (p *RacePipeline) register(ctx context.Context, predictor *ml.Predictor, result ml.TrainingResult, path string) {
	if p.registry == nil {
		return
	}

	metricsJSON, _ := json.Marshal(map[string]interface{}{
		"cv_roc_auc_mean": result.CVAUCMean,
		"cv_roc_auc_std":  result.CVAUCStd,
		"cv_scores":       result.CVScores,
		"n_samples":       result.NSamples,
		"n_features":      result.NFeatures,
	})
	params := predictor.Params()
	hyperJSON, _ := json.Marshal(map[string]interface{}{
		"n_estimators":     params.NEstimators,
		"max_depth":        params.MaxDepth,
		"min_samples_leaf": params.MinSamplesLeaf,
		"max_features":     params.MaxFeatures,
		"seed":             params.Seed,
		"cv_folds":         p.opts.CVFolds,
	})

	trainedAt := predictor.TrainedAt()
	record := &models.Model{
		ID:              predictor.ID(),
		Name:            ml.ModelName,
		Version:         fmt.Sprintf("%s-%s", trainedAt.Format("20060102T150405"), predictor.ID().String()[:8]),
		ModelType:       ml.ModelType,
		Path:            path,
		Metrics:         metricsJSON,
		Hyperparameters: hyperJSON,
		FeatureColumns:  predictor.FeatureColumns(),
		TrainedAt:       trainedAt,
	}

	log := p.logger.WithField("model_id", record.ID)
	if err := p.registry.Create(ctx, record); err != nil {
		log.WithError(err).Warn("Failed to register model")
		return
	}
	if err := p.registry.SetActive(ctx, record.ID); err != nil {
		log.WithError(err).Warn("Failed to activate registered model")
		return
	}
	log.WithField("version", record.Version).Info("Registered model")
}

// Predict ranks one race from the range. An empty raceID selects the first
// race in load order. Without a saved model one is trained on the loaded
// data first.
func (p *RacePipeline) Predict(ctx context.Context, dr datasource.DateRange, raceID string) (*PredictionResult, error) {
	df, err := p.LoadFeatures(ctx, dr)
	if err != nil {
		return nil, err
	}

	raceID, race, err := SelectRace(df, raceID)
	if err != nil {
		return nil, err
	}

	predictor, err := p.ensureModel(ctx, df)
	if err != nil {
		return nil, err
	}

	key := ml.CacheKey{ModelID: predictor.ID(), RaceID: raceID}
	if p.cache != nil {
		if ranked, ok := p.cache.Get(key); ok {
			return &PredictionResult{RaceID: raceID, Ranked: ranked, ModelID: predictor.ID().String(), Cached: true}, nil
		}
	}

	ranked, err := predictor.PredictRace(race)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}
	metrics.RecordRacePrediction(ranked.Nrow())
	if p.cache != nil {
		p.cache.Set(key, ranked)
	}

	return &PredictionResult{RaceID: raceID, Ranked: ranked, ModelID: predictor.ID().String()}, nil
}

// ensureModel returns the model held in memory, else the saved one, else a
// model freshly trained on df.
func (p *RacePipeline) ensureModel(ctx context.Context, df dataframe.DataFrame) (*ml.Predictor, error) {
	p.mu.Lock()
	held := p.predictor
	p.mu.Unlock()
	if held != nil && held.IsTrained() {
		return held, nil
	}

	predictor := ml.NewPredictor(p.opts.Forest, p.opts.CVFolds, p.logger)
	err := predictor.Load(p.opts.ModelDir)
	switch {
	case err == nil:
		p.mu.Lock()
		p.predictor = predictor
		p.mu.Unlock()
		return predictor, nil
	case errors.Is(err, ml.ErrModelNotFound):
		p.logger.WithField("model_dir", p.opts.ModelDir).Warn("No saved model found, training on the loaded data")
		if _, err := p.TrainOn(ctx, df); err != nil {
			return nil, err
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.predictor, nil
	default:
		return nil, err
	}
}

// CheckModel reports whether Predict can run without training first.
func (p *RacePipeline) CheckModel(ctx context.Context) error {
	p.mu.Lock()
	held := p.predictor
	p.mu.Unlock()
	if held != nil && held.IsTrained() {
		return nil
	}

	path := ml.ArtifactPath(p.opts.ModelDir)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ml.ErrModelNotFound, path)
		}
		return err
	}
	return nil
}

// SelectRace returns the rows of raceID, or of the first race when raceID is empty.
func SelectRace(df dataframe.DataFrame, raceID string) (string, dataframe.DataFrame, error) {
	if !models.HasColumn(df, models.ColRaceID) || df.Nrow() == 0 {
		return "", dataframe.DataFrame{}, ErrNoRaces
	}

	order, _ := models.RaceGroups(df)
	if raceID == "" {
		raceID = order[0]
	}

	race := models.FilterRace(df, raceID)
	if race.Nrow() == 0 {
		return "", dataframe.DataFrame{}, fmt.Errorf("%w: %s", ErrRaceNotFound, raceID)
	}
	return raceID, race, nil
}

func fetchStatus(err error) string {
	var dsErr datasource.DataSourceError
	if errors.As(err, &dsErr) && dsErr.Code != "" {
		return dsErr.Code
	}
	return "error"
}
