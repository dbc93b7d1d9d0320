package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	apiErrorsTotal         *prometheus.CounterVec
	marksSubmissionsTotal  *prometheus.CounterVec
	cardGenerationsTotal   *prometheus.CounterVec
	cardGenerationSeconds  prometheus.Histogram
	summaryRecomputesTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the results
// pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "results_api_requests_total",
			Help: "Total number of results API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "results_api_latency_seconds",
			Help:    "Latency distribution for results API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "results_api_errors_total",
			Help: "Total number of error responses returned by the results API.",
		}, []string{"method", "route", "status"})

		marksSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "results_marks_submissions_total",
			Help: "Total number of marks submission attempts by outcome.",
		}, []string{"outcome"})

		cardGenerationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "results_report_card_generations_total",
			Help: "Total number of report-card generation attempts by outcome.",
		}, []string{"outcome"})

		cardGenerationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "results_report_card_generation_seconds",
			Help:    "Duration of successful report-card generation runs.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		})

		summaryRecomputesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "results_summary_recomputes_total",
			Help: "Total number of exam summary recomputations.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			marksSubmissionsTotal,
			cardGenerationsTotal,
			cardGenerationSeconds,
			summaryRecomputesTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// MarksSubmissions exposes the marks submission outcome counter.
func MarksSubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return marksSubmissionsTotal
}

// CardGenerations exposes the report-card generation outcome counter.
func CardGenerations() *prometheus.CounterVec {
	RegisterMetrics()
	return cardGenerationsTotal
}

// CardGenerationDuration exposes the generation duration histogram.
func CardGenerationDuration() prometheus.Histogram {
	RegisterMetrics()
	return cardGenerationSeconds
}

// SummaryRecomputes exposes the summary recomputation counter.
func SummaryRecomputes() prometheus.Counter {
	RegisterMetrics()
	return summaryRecomputesTotal
}
