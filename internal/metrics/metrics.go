// Package metrics provides the centralized Prometheus metrics registry for the predictor.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "keiba"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	DataFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "data_fetches_total",
		Help:      "Total number of race table fetches by source and status",
	}, []string{"source", "status"})
	RacesPredictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "races_predicted_total",
		Help:      "Total number of races ranked by the model",
	})
	RunnersScoredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runners_scored_total",
		Help:      "Total number of runners given a win probability",
	})
	ScheduledRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduled_runs_total",
		Help:      "Total number of scheduled retraining runs by status",
	}, []string{"status"})
)

// Gauge metrics
var (
	RowsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rows_loaded",
		Help:      "Number of entry rows in the most recently loaded table",
	})
	PredictionCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "prediction_cache_hit_ratio",
		Help:      "Race prediction cache hit ratio",
	})
)

// Histogram metrics
var (
	DataFetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "data_fetch_duration_seconds",
		Help:      "Duration of race table fetches in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(DataFetchesTotal)
		registry.MustRegister(RacesPredictedTotal)
		registry.MustRegister(RunnersScoredTotal)
		registry.MustRegister(ScheduledRunsTotal)

		registry.MustRegister(RowsLoaded)
		registry.MustRegister(PredictionCacheHitRatio)

		registry.MustRegister(DataFetchDuration)

		// Register model metrics
		registry.MustRegister(TrainingRunsTotal)
		registry.MustRegister(TrainingDuration)
		registry.MustRegister(CVAUCMean)
		registry.MustRegister(CVAUCStd)
		registry.MustRegister(TrainingSamples)
		registry.MustRegister(FeatureImportance)

		// Register benefit metrics
		registry.MustRegister(BenefitCalculationsTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// WriteToTextfile writes the current registry in the node_exporter textfile
// format, for runs too short to be scraped.
func WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, GetRegistry())
}

// RecordDataFetch records a race table fetch.
func RecordDataFetch(source, status string, durationSeconds float64, rows int) {
	DataFetchesTotal.WithLabelValues(source, status).Inc()
	DataFetchDuration.WithLabelValues(source).Observe(durationSeconds)
	if status == "success" {
		RowsLoaded.Set(float64(rows))
	}
}

// RecordRacePrediction records one ranked race.
func RecordRacePrediction(runners int) {
	RacesPredictedTotal.Inc()
	RunnersScoredTotal.Add(float64(runners))
}

// RecordScheduledRun records a scheduled retraining outcome.
func RecordScheduledRun(status string) {
	ScheduledRunsTotal.WithLabelValues(status).Inc()
}

// UpdatePredictionCacheHitRatio updates the race prediction cache gauge.
func UpdatePredictionCacheHitRatio(ratio float64) {
	PredictionCacheHitRatio.Set(ratio)
}
