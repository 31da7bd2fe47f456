package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamscope_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// InterpretationDuration records end-to-end interpretation pipeline latency.
	InterpretationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dreamscope_interpretation_duration_seconds",
		Help:    "Latency of the dream interpretation pipeline in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	// InterpretationFailures counts pipeline failures by stage.
	InterpretationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamscope_interpretation_failures_total",
		Help: "Total number of interpretation pipeline failures by stage",
	}, []string{"stage"})

	// GenerationRequests counts calls to the text-generation provider by outcome.
	GenerationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamscope_generation_requests_total",
		Help: "Total number of generation provider calls by outcome",
	}, []string{"outcome"})

	// TokenRefreshes counts transparent credential re-issues on the refresh path.
	TokenRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dreamscope_token_refreshes_total",
		Help: "Total number of access tokens re-issued via a refresh token",
	})

	// AuthFailures counts rejected authentication attempts by reason.
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dreamscope_auth_failures_total",
		Help: "Total number of failed authentication attempts by reason",
	}, []string{"reason"})
)
