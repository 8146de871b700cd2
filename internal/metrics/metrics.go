// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HandsCompleted counts settled hands, aborted ones included.
	HandsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tabled_hands_completed_total",
		Help: "Number of hands settled across all tables.",
	})

	// Actions counts accepted player actions by kind.
	Actions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabled_actions_total",
		Help: "Number of accepted player actions.",
	}, []string{"kind"})

	// BroadcastDrops counts clients disconnected for a full send buffer.
	BroadcastDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tabled_broadcast_drops_total",
		Help: "Number of connections dropped because their send buffer was full.",
	})

	// ConnectedClients tracks currently open websocket connections.
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tabled_connected_clients",
		Help: "Currently connected websocket clients.",
	})

	// RakeMinorUnits accumulates rake taken, in minor units.
	RakeMinorUnits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tabled_rake_minor_units_total",
		Help: "Total rake collected, in minor chip units.",
	})
)
