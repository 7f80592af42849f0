package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "beatroom_active_connections",
			Help: "Currently connected collaborators",
		},
	)

	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "beatroom_active_rooms",
			Help: "Rooms currently alive",
		},
	)

	// Event metrics
	EventsBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beatroom_events_broadcast_total",
			Help: "Events fanned out to rooms",
		},
		[]string{"type"},
	)

	DroppedSends = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beatroom_dropped_sends_total",
			Help: "Per-recipient sends shed to backpressure",
		},
	)

	ChatRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beatroom_chat_rate_limited_total",
			Help: "Chat messages rejected by the rate limiter",
		},
	)

	// Snapshot metrics
	SnapshotsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beatroom_snapshots_saved_total",
			Help: "Room snapshots persisted",
		},
	)

	SnapshotsLoaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beatroom_snapshots_loaded_total",
			Help: "Room snapshots restored",
		},
	)

	SnapshotStoreLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "beatroom_snapshot_store_latency_seconds",
			Help:    "Snapshot store operation latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
)
