package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "qabot_slack_build_info",
			Help: "Build information of the QA assistant bot",
		},
		[]string{"version", "commit", "date"},
	)

	EventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabot_slack_events_received_total",
			Help: "Total number of Slack events received",
		},
		[]string{"event_type", "inner_event_type"},
	)

	EventsDuplicateTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qabot_slack_events_duplicate_total",
			Help: "Total number of duplicate events skipped",
		},
	)

	MessagesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabot_slack_messages_processed_total",
			Help: "Total number of messages processed",
		},
		[]string{"source"},
	)

	MessagesIgnoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabot_slack_messages_ignored_total",
			Help: "Total number of messages ignored",
		},
		[]string{"reason"},
	)

	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qabot_slack_turn_duration_seconds",
			Help:    "Duration of a single dispatched turn",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	MessagesPostedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabot_slack_messages_posted_total",
			Help: "Total number of messages posted to Slack",
		},
		[]string{"status"},
	)

	SlackAPIErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabot_slack_api_errors_total",
			Help: "Total number of Slack API errors",
		},
		[]string{"operation"},
	)
)
