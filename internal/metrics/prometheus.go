package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arbiter_dispatch_duration_seconds",
			Help:    "Per-backend call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 180},
		},
		[]string{"backend"},
	)

	ResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbiter_responses_total",
			Help: "Backend responses by outcome",
		},
		[]string{"backend", "status"},
	)

	RoundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "arbiter_rounds_total",
			Help: "Total dispatch-and-aggregate rounds executed",
		},
	)

	RoundContradictions = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arbiter_round_contradictions",
			Help:    "Contradictory clusters per round",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)

	AgreementScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arbiter_agreement_score",
			Help:    "Per-round agreement scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	SessionsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbiter_sessions_finished_total",
			Help: "Iteration sessions by terminal state",
		},
		[]string{"state"},
	)

	EmbeddingFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "arbiter_embedding_fallbacks_total",
			Help: "Aggregation passes that used the local embedding fallback",
		},
	)
)

func Init() {
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(ResponsesTotal)
	prometheus.MustRegister(RoundsTotal)
	prometheus.MustRegister(RoundContradictions)
	prometheus.MustRegister(AgreementScore)
	prometheus.MustRegister(SessionsFinished)
	prometheus.MustRegister(EmbeddingFallbacks)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
