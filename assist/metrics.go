package assist

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabot_assist_anthropic_requests_total",
			Help: "Total number of Anthropic API requests",
		},
		[]string{"status"},
	)

	requestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qabot_assist_anthropic_request_duration_seconds",
			Help:    "Duration of Anthropic API requests in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~410s
		},
	)

	tokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabot_assist_anthropic_tokens_total",
			Help: "Total number of Anthropic tokens consumed",
		},
		[]string{"direction"},
	)
)

func recordRequest(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	requestsTotal.WithLabelValues(status).Inc()
	requestDuration.Observe(d.Seconds())
}

func recordTokens(input, output int64) {
	tokensTotal.WithLabelValues("input").Add(float64(input))
	tokensTotal.WithLabelValues("output").Add(float64(output))
}
