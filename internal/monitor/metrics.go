package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the monitor's Prometheus series.
type Metrics struct {
	Probes            *prometheus.CounterVec
	Restarts          prometheus.Counter
	RulesApplied      prometheus.Counter
	Reconciliations   prometheus.Counter
	ConsecutiveFailed prometheus.Gauge
	State             prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Probes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wifibridge",
			Name:      "probes_total",
			Help:      "Connectivity probes by target and result",
		}, []string{"target", "result"}),
		Restarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wifibridge",
			Name:      "network_restarts_total",
			Help:      "Network restarts triggered by failed probes",
		}),
		RulesApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wifibridge",
			Name:      "rules_applied_total",
			Help:      "Firewall rules re-added by reconciliation",
		}),
		Reconciliations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wifibridge",
			Name:      "reconciliations_total",
			Help:      "Firewall reconciliation passes",
		}),
		ConsecutiveFailed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "wifibridge",
			Name:      "consecutive_failures",
			Help:      "Probe failures since the last success or restart",
		}),
		State: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "wifibridge",
			Name:      "state",
			Help:      "Monitor state: 0 healthy, 1 degraded, 2 recovering",
		}),
	}
}
