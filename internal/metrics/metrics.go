// Package metrics declares the Prometheus instrumentation for the engine,
// registered once at startup and served at /metrics by internal/httpstatus.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Routes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ripd_routes",
			Help: "Current number of rows in the forwarding table, including the self-route.",
		},
	)

	PacketsReceivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ripd_packets_received_total",
			Help: "Datagrams successfully decoded and applied to the table.",
		},
	)

	PacketsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripd_packets_dropped_total",
			Help: "Datagrams dropped without affecting the table, by reason.",
		},
		[]string{"reason"},
	)

	PacketsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripd_packets_sent_total",
			Help: "Response packets sent to neighbours, by kind (periodic or triggered).",
		},
		[]string{"kind"},
	)

	RouteTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ripd_route_timeouts_total",
			Help: "Routes that transitioned to infinity because their authority stopped advertising them.",
		},
	)

	RouteGCTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ripd_route_gc_total",
			Help: "Routes removed from the table after timeout + garbage-time elapsed.",
		},
	)
)

// Register registers all metrics with the default Prometheus registry.
func Register() {
	prometheus.MustRegister(
		Routes,
		PacketsReceivedTotal,
		PacketsDroppedTotal,
		PacketsSentTotal,
		RouteTimeoutsTotal,
		RouteGCTotal,
	)
}
