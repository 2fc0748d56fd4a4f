package ml

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/keiba-predictor/internal/logger"
)

// DefaultCVFolds is the number of cross-validation folds.
const DefaultCVFolds = 5

// CVResult holds per-fold ROC-AUC scores and their summary.
type CVResult struct {
	Scores []float64
	Mean   float64
	Std    float64 // population standard deviation
}

// StratifiedKFold shuffles each class with seed and deals its rows round-robin
// into k folds, so every fold keeps roughly the overall class balance. It
// returns the test row indices of each fold in ascending order.
func StratifiedKFold(y []int, k int, seed int64) [][]int {
	rng := rand.New(rand.NewSource(seed))
	byClass := map[int][]int{}
	var classes []int
	for i, label := range y {
		if _, ok := byClass[label]; !ok {
			classes = append(classes, label)
		}
		byClass[label] = append(byClass[label], i)
	}

	assign := make([]int, len(y))
	for _, c := range classes {
		rows := byClass[c]
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		for pos, r := range rows {
			assign[r] = pos % k
		}
	}

	folds := make([][]int, k)
	for r, f := range assign {
		folds[f] = append(folds[f], r)
	}
	return folds
}

// ROCAUC returns the area under the ROC curve of scores against binary labels.
func ROCAUC(scores []float64, labels []int) (float64, error) {
	if len(scores) != len(labels) {
		return 0, fmt.Errorf("roc auc: %d scores for %d labels", len(scores), len(labels))
	}
	y := make([]float64, len(scores))
	copy(y, scores)
	classes := make([]bool, len(labels))
	pos := 0
	for i, l := range labels {
		classes[i] = l == 1
		pos += l
	}
	if pos == 0 || pos == len(labels) {
		return 0, ErrSingleClass
	}

	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// CrossValidate scores a fresh forest on each stratified fold. Folds whose
// test rows lack one of the classes cannot be scored and are skipped.
func CrossValidate(ctx context.Context, X [][]float64, y []int, k int, params ForestParams, log *logger.MLLogger) (CVResult, error) {
	if k < 2 {
		k = DefaultCVFolds
	}
	folds := StratifiedKFold(y, k, params.Seed)
	inTest := make([]int, len(y))

	var scores []float64
	for f, test := range folds {
		if err := ctx.Err(); err != nil {
			return CVResult{}, err
		}
		if len(test) == 0 {
			continue
		}
		for i := range inTest {
			inTest[i] = -1
		}
		for _, r := range test {
			inTest[r] = f
		}

		var trainX, testX [][]float64
		var trainY, testY []int
		for r := range X {
			if inTest[r] == f {
				testX = append(testX, X[r])
				testY = append(testY, y[r])
			} else {
				trainX = append(trainX, X[r])
				trainY = append(trainY, y[r])
			}
		}

		forest := NewRandomForest(params)
		if err := forest.Fit(ctx, trainX, trainY); err != nil {
			return CVResult{}, fmt.Errorf("fold %d: %w", f+1, err)
		}
		auc, err := ROCAUC(forest.PredictProba(testX), testY)
		if err != nil {
			if log != nil {
				log.WithField("fold", f+1).Warn("Skipping cross-validation fold without both classes")
			}
			continue
		}
		if log != nil {
			log.LogCrossValidationFold(f+1, len(trainY), len(testY), auc)
		}
		scores = append(scores, auc)
	}

	if len(scores) == 0 {
		return CVResult{}, ErrSingleClass
	}
	mean, err := stats.Mean(scores)
	if err != nil {
		return CVResult{}, err
	}
	std, err := stats.StandardDeviationPopulation(scores)
	if err != nil {
		return CVResult{}, err
	}
	return CVResult{Scores: scores, Mean: mean, Std: std}, nil
}
