package metrics

import "github.com/prometheus/client_golang/prometheus"

// BenefitCalculationsTotal counts calculator invocations by calculator and outcome.
var BenefitCalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "benefit_calculations_total",
	Help:      "Total number of benefit and deduction calculations",
}, []string{"calculator", "status"})

// RecordBenefitCalculation records one calculator run.
func RecordBenefitCalculation(calculator string, err error) {
	status := "success"
	if err != nil {
		status = "invalid_input"
	}
	BenefitCalculationsTotal.WithLabelValues(calculator, status).Inc()
}
