package app

import (
	"github.com/enrell/alpine-wifi-bridge/internal/monitor"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/prometheus/client_golang/prometheus"
)

// NewMonitor builds the connectivity monitor for s with the configured
// probe method.
func (a *App) NewMonitor(s models.Settings, reg prometheus.Registerer) *monitor.Monitor {
	var prober monitor.Prober
	switch a.monitorCfg.ProbeMethod {
	case models.ProbeCommand:
		prober = &monitor.CommandProber{Runner: a.runner, Timeout: a.monitorCfg.ProbeTimeout}
	default:
		prober = &monitor.ICMPProber{Timeout: a.monitorCfg.ProbeTimeout, Privileged: a.monitorCfg.PrivilegedICMP}
	}
	return monitor.New(s, a.monitorCfg, prober, a.nfHelper, a.recovery, monitor.NewMetrics(reg))
}
