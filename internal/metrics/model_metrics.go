package metrics

import "github.com/prometheus/client_golang/prometheus"

// Model training metrics
var (
	TrainingRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "training_runs_total",
		Help:      "Total number of model training runs by status",
	}, []string{"status"})

	TrainingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "training_duration_seconds",
		Help:      "Duration of model training including cross-validation",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800},
	})

	CVAUCMean = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cv_roc_auc_mean",
		Help:      "Mean cross-validated ROC-AUC of the latest model",
	})

	CVAUCStd = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cv_roc_auc_std",
		Help:      "Standard deviation of cross-validated ROC-AUC of the latest model",
	})

	TrainingSamples = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "training_samples",
		Help:      "Number of rows the latest model was fitted on",
	})

	FeatureImportance = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feature_importance",
		Help:      "Mean decrease in impurity of each feature in the latest model",
	}, []string{"feature"})
)

// RecordTrainingSuccess records a completed training run.
func RecordTrainingSuccess(durationSeconds, aucMean, aucStd float64, samples int) {
	TrainingRunsTotal.WithLabelValues("success").Inc()
	TrainingDuration.Observe(durationSeconds)
	CVAUCMean.Set(aucMean)
	CVAUCStd.Set(aucStd)
	TrainingSamples.Set(float64(samples))
}

// RecordTrainingFailure records a failed training run.
func RecordTrainingFailure() {
	TrainingRunsTotal.WithLabelValues("failure").Inc()
}

// UpdateFeatureImportance sets the importance gauge of one feature.
func UpdateFeatureImportance(feature string, score float64) {
	FeatureImportance.WithLabelValues(feature).Set(score)
}
