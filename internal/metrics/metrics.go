package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caseflow_commands_enqueued_total",
		Help: "Total number of editor commands placed on the command queue.",
	})

	CommandsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caseflow_commands_processed_total",
		Help: "Total number of commands run by the engine, labelled by command and status.",
	}, []string{"command", "status"})

	CommandsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caseflow_commands_dropped_total",
		Help: "Total number of commands rejected due to a full queue.",
	})

	CommandDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "caseflow_command_duration_ms",
		Help:    "Command execution latency in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 1000},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "caseflow_queue_utilization_ratio",
		Help: "Current command queue utilization (0–1).",
	})

	Nodes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "caseflow_nodes",
		Help: "Number of nodes in the flow, labelled by type.",
	}, []string{"type"})

	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "caseflow_connections",
		Help: "Number of connections in the flow.",
	})

	ConnectsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caseflow_connects_rejected_total",
		Help: "Total number of connections refused because the target already had a parent.",
	})

	Imports = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caseflow_imports_total",
		Help: "Total number of document imports, labelled by status.",
	}, []string{"status"})

	ImportWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caseflow_import_warnings_total",
		Help: "Total number of entries skipped or repaired during import, labelled by kind.",
	}, []string{"kind"})

	PreviewTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caseflow_preview_turns_total",
		Help: "Total number of preview turns, labelled by resulting state.",
	}, []string{"state"})

	PreviewSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "caseflow_preview_sessions",
		Help: "Number of open preview sessions.",
	})

	Autosaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caseflow_autosaves_total",
		Help: "Total number of snapshot saves, labelled by status.",
	}, []string{"status"})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caseflow_events_dropped_total",
		Help: "Total number of events not delivered to a slow subscriber.",
	})
)
