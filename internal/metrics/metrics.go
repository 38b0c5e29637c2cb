package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashcard_generations_total",
			Help: "Generation sessions by terminal status and error code",
		},
		[]string{"status", "error_code"},
	)

	generationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flashcard_generation_duration_seconds",
			Help:    "Text-generation call latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	proposalsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flashcard_proposals_generated_total",
			Help: "Proposals persisted from successful generations",
		},
	)

	proposalReviews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashcard_proposal_reviews_total",
			Help: "Proposal review decisions by outcome",
		},
		[]string{"decision"},
	)
)

// RecordGeneration records one finished generation attempt. errorCode is
// empty for successful sessions.
func RecordGeneration(status, errorCode string, proposals int, latency time.Duration) {
	generationsTotal.WithLabelValues(status, errorCode).Inc()
	generationDuration.Observe(latency.Seconds())
	if proposals > 0 {
		proposalsGenerated.Add(float64(proposals))
	}
}

// Review decisions.
const (
	DecisionAcceptedFull   = "accepted_full"
	DecisionAcceptedEdited = "accepted_edited"
	DecisionRejected       = "rejected"
)

func RecordReview(decision string) {
	proposalReviews.WithLabelValues(decision).Inc()
}
