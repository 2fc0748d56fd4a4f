// Package logger provides ML-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// MLLogger provides dedicated logging for model training and inference.
type MLLogger struct {
	*logrus.Entry
}

// NewMLLogger creates a new ML logger.
func NewMLLogger(baseLogger *logrus.Logger) *MLLogger {
	return &MLLogger{
		Entry: baseLogger.WithField("component", "ml"),
	}
}

// LogModelTraining logs model training events.
func (ml *MLLogger) LogModelTraining(modelName string, trainingDuration float64, metrics map[string]float64, hyperparameters map[string]interface{}) {
	ml.WithFields(logrus.Fields{
		"model_name":        modelName,
		"training_duration": trainingDuration,
		"metrics":           metrics,
		"hyperparameters":   hyperparameters,
	}).Info("Model training completed")
}

// LogCrossValidationFold logs the score of a single cross-validation fold.
func (ml *MLLogger) LogCrossValidationFold(fold int, trainRows, testRows int, auc float64) {
	ml.WithFields(logrus.Fields{
		"fold":       fold,
		"train_rows": trainRows,
		"test_rows":  testRows,
		"roc_auc":    auc,
	}).Debug("Cross-validation fold scored")
}

// LogRacePrediction logs a completed race prediction.
func (ml *MLLogger) LogRacePrediction(raceID string, entries int, topHorse string, topProbability float64) {
	ml.WithFields(logrus.Fields{
		"race_id":         raceID,
		"entries":         entries,
		"top_horse":       topHorse,
		"top_probability": topProbability,
	}).Info("Race prediction completed")
}

// LogModelPersisted logs a save or load of the model artifact.
func (ml *MLLogger) LogModelPersisted(action, path string, featureCount int) {
	ml.WithFields(logrus.Fields{
		"action":        action,
		"path":          path,
		"feature_count": featureCount,
	}).Info("Model artifact " + action)
}

// LogMissingFeature logs a trained feature column that is absent at inference time.
func (ml *MLLogger) LogMissingFeature(column string, fallback float64) {
	ml.WithFields(logrus.Fields{
		"column":   column,
		"fallback": fallback,
	}).Warn("Feature column missing at inference, using training median")
}

// LogMLPredictionError logs ML prediction errors.
func (ml *MLLogger) LogMLPredictionError(modelType string, errorReason string) {
	ml.WithFields(logrus.Fields{
		"model_type":   modelType,
		"error_reason": errorReason,
	}).Error("ML prediction failed")
}
