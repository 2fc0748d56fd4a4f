// Package ml trains and serves the win-probability model.
package ml

import "errors"

var (
	// ErrModelNotTrained indicates a prediction was requested before training
	ErrModelNotTrained = errors.New("model is not trained")

	// ErrModelNotFound indicates no persisted artifact exists in the model directory
	ErrModelNotFound = errors.New("model artifact not found")

	// ErrMissingTarget indicates the training table has no target column
	ErrMissingTarget = errors.New("training table has no target column")

	// ErrNoTrainingData indicates the training table is empty or has no usable features
	ErrNoTrainingData = errors.New("no training data")

	// ErrSingleClass indicates the target has only one class, so AUC is undefined
	ErrSingleClass = errors.New("target has a single class")

	// ErrInvalidArtifact indicates the persisted artifact could not be decoded
	ErrInvalidArtifact = errors.New("invalid model artifact")
)
