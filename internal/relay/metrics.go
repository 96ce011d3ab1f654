package relay

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the relay's prometheus collectors.
type Metrics struct {
	Rooms    prometheus.Gauge
	Clients  prometheus.Gauge
	Events   *prometheus.CounterVec
	Rejected *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "codehive",
			Subsystem: "relay",
			Name:      "rooms",
			Help:      "Number of open rooms.",
		}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "codehive",
			Subsystem: "relay",
			Name:      "clients",
			Help:      "Number of connected websocket clients.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codehive",
			Subsystem: "relay",
			Name:      "events_total",
			Help:      "Inbound events by kind.",
		}, []string{"kind"}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "codehive",
			Subsystem: "relay",
			Name:      "rejected_total",
			Help:      "Inbound frames answered with an error event, by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.Rooms, m.Clients, m.Events, m.Rejected)
	}
	return m
}
