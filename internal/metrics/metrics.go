package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SamplesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blend_samples_ingested_total",
			Help: "Quality samples consumed from Kafka",
		},
		[]string{"plant"},
	)

	BucketsEvaluated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blend_buckets_evaluated_total",
			Help: "Hour buckets evaluated, by outcome",
		},
		[]string{"plant", "outcome"}, // compliant | non_compliant | spec_not_found | insufficient_data
	)

	AlertsRaised = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blend_alerts_raised_total",
			Help: "Near-threshold alerts raised per attribute",
		},
		[]string{"plant", "attribute"},
	)

	SuggestionsIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blend_suggestions_issued_total",
			Help: "Fraction adjustments suggested, by direction",
		},
		[]string{"plant", "direction"},
	)

	SuggestionsJudged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blend_suggestions_judged_total",
			Help: "Suggestions judged against the following hour",
		},
		[]string{"plant", "status"},
	)

	EvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "blend_evaluation_duration_seconds",
			Help:    "Bucket evaluation duration end to end",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)

func init() {
	prometheus.MustRegister(
		SamplesIngested,
		BucketsEvaluated,
		AlertsRaised,
		SuggestionsIssued,
		SuggestionsJudged,
		EvaluationDuration,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
