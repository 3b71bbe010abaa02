package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkflowsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabot_engine_workflows_started_total",
			Help: "Total number of workflow runs started",
		},
		[]string{"workflow"},
	)

	WorkflowsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabot_engine_workflows_completed_total",
			Help: "Total number of workflow runs that rendered an artifact",
		},
		[]string{"workflow"},
	)

	ValidationRejectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabot_engine_validation_rejects_total",
			Help: "Total number of step inputs rejected by validation",
		},
		[]string{"workflow"},
	)

	InterruptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabot_engine_interrupts_total",
			Help: "Total number of universal interrupts honored mid-workflow",
		},
		[]string{"token"},
	)

	RenderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabot_engine_render_errors_total",
			Help: "Total number of artifact render failures",
		},
		[]string{"workflow"},
	)

	EscalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qabot_engine_escalations_total",
			Help: "Total number of unexpected failures that reset a session",
		},
		[]string{"workflow"},
	)

	AssistErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qabot_engine_assist_errors_total",
			Help: "Total number of text-generation assistant failures",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qabot_engine_active_sessions",
			Help: "Number of live user sessions",
		},
	)
)
