package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diet_coach_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diet_coach_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diet_coach_messages_total",
			Help: "Total number of chat messages handled, by command",
		},
		[]string{"command"},
	)

	onboardingCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diet_coach_onboarding_completed_total",
			Help: "Total number of completed onboarding dialogues",
		},
	)

	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diet_coach_mcp_tool_calls_total",
			Help: "Total number of MCP tool calls",
		},
		[]string{"tool", "status"},
	)

	storeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diet_coach_store_errors_total",
			Help: "Total number of session store failures",
		},
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diet_coach_rate_limited_total",
			Help: "Total number of inbound events dropped by the rate limiter",
		},
	)

	initOnce sync.Once
)

// Init registers the collectors with the default registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			messagesTotal,
			onboardingCompletedTotal,
			toolCallsTotal,
			storeErrorsTotal,
			rateLimitedTotal,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordMessage(command string, completedOnboarding bool) {
	messagesTotal.WithLabelValues(command).Inc()
	if completedOnboarding {
		onboardingCompletedTotal.Inc()
	}
}

func RecordToolCall(tool, status string) {
	toolCallsTotal.WithLabelValues(tool, status).Inc()
}

func RecordStoreError() {
	storeErrorsTotal.Inc()
}

func RecordRateLimited() {
	rateLimitedTotal.Inc()
}
