package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	generationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_dashboard_generation_requests_total",
			Help: "Total number of generation proxy requests.",
		},
		[]string{"mode", "outcome"}, // mode: rag|llm, outcome: success|mock|upstream_error|bad_request
	)
	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qa_dashboard_generation_duration_seconds",
			Help:    "Histogram of generation proxy request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_dashboard_upstream_requests_total",
			Help: "Total number of requests to the external test-generation service.",
		},
		[]string{"op", "status"},
	)
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qa_dashboard_llm_requests_total",
			Help: "Total number of requests to the LLM text-generation API.",
		},
		[]string{"provider", "model", "status"},
	)
)

const (
	OutcomeSuccess       = "success"
	OutcomeMock          = "mock"
	OutcomeUpstreamError = "upstream_error"
	OutcomeBadRequest    = "bad_request"
)

func ObserveGeneration(mode, outcome string, started time.Time) {
	generationRequestsTotal.WithLabelValues(mode, outcome).Inc()
	generationDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}

// ObserveUpstream records one call to the story API. status is the HTTP status
// text or "error" when the request never got a response.
func ObserveUpstream(op, status string) {
	upstreamRequestsTotal.WithLabelValues(op, status).Inc()
}

func ObserveLLM(provider, model, status string) {
	llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
