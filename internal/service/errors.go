// Package service orchestrates loading race data, training the win-probability
// model and ranking races.
package service

import "errors"

var (
	// ErrRaceNotFound indicates the requested race id is absent from the loaded data
	ErrRaceNotFound = errors.New("race not found")

	// ErrNoRaces indicates the loaded data contains no races to predict
	ErrNoRaces = errors.New("no races to predict")
)
