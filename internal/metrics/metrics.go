// Package metrics provides Prometheus instrumentation for the client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsApplied counts ledger events applied, partitioned by type.
	EventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zingers_events_applied_total",
		Help: "Total venue events applied to the account state",
	}, []string{"type"})

	// ProtocolErrors counts inbound frames the codec rejected.
	ProtocolErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zingers_protocol_errors_total",
		Help: "Inbound frames dropped as malformed",
	}, []string{"asset"})

	// StaleReferences counts events that referenced removed orders.
	StaleReferences = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zingers_stale_references_total",
		Help: "Events referencing an order no longer present",
	})

	// Reconnects counts channel reconnections, partitioned by asset.
	Reconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zingers_channel_reconnects_total",
		Help: "Channel disconnects that triggered a reconnect",
	}, []string{"asset"})

	// ConnectedChannels tracks live channel connections.
	ConnectedChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zingers_connected_channels",
		Help: "Number of currently connected asset channels",
	})

	// OrdersPlaced counts outbound order requests by side.
	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zingers_orders_placed_total",
		Help: "Outbound order placement requests",
	}, []string{"side"})

	// CancelsSent counts outbound cancel requests.
	CancelsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zingers_cancels_sent_total",
		Help: "Outbound order cancellation requests",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
