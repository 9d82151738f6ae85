package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics
var (
	// PipelineTicksTotal tracks scheduled ticks by stage and outcome
	PipelineTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_ticks_total",
			Help: "Scheduled stage ticks by stage and outcome (ok/noop/error)",
		},
		[]string{"stage", "outcome"},
	)

	// PipelineTickDuration tracks tick latency per stage in seconds
	PipelineTickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_tick_duration_seconds",
			Help:    "Stage tick duration in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60},
		},
		[]string{"stage"},
	)

	// AnalysisAttemptsTotal tracks analysis calls by result
	AnalysisAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_attempts_total",
			Help: "Analysis service calls by result (success/failure)",
		},
		[]string{"result"},
	)

	// CommentsTerminalTotal tracks comments reaching a terminal state
	CommentsTerminalTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comments_terminal_total",
			Help: "Comments reaching a terminal state (analyzed/failed)",
		},
		[]string{"state"},
	)

	// CommentsIngestedTotal counts RAW comments persisted by ingestion
	CommentsIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comments_ingested_total",
			Help: "RAW comments persisted by the ingestion stage",
		},
	)
)

// Broadcast metrics
var (
	// BroadcastEventsTotal tracks published events by name and status
	BroadcastEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_events_total",
			Help: "Published subscriber events by event name and status",
		},
		[]string{"event", "status"},
	)

	// BroadcastCycleDuration tracks one full four-event publish cycle
	BroadcastCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcast_cycle_duration_seconds",
			Help:    "Duration of one full broadcast cycle in seconds",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5},
		},
	)

	// SubscribersConnected tracks currently connected websocket subscribers
	SubscribersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscribers_connected",
			Help: "Currently connected websocket subscribers",
		},
	)

	// SubscribersSlowEvicted counts subscribers dropped for slow reads
	SubscribersSlowEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subscribers_slow_evicted_total",
			Help: "Subscribers disconnected because their send buffer filled",
		},
	)
)

// Health metrics
var (
	// HealthFailedComments is the FAILED comment count from the last sample
	HealthFailedComments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "health_failed_comments",
			Help: "FAILED comments observed by the last health sample",
		},
	)

	// HealthPendingComments is the in-flight comment count from the last sample
	HealthPendingComments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "health_pending_comments",
			Help: "RAW comments with at least one failed attempt observed by the last health sample",
		},
	)
)
