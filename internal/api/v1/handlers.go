package v1

import (
	"net/http"
	"strconv"

	"github.com/enrell/alpine-wifi-bridge/internal/logbuffer"
	"github.com/enrell/alpine-wifi-bridge/internal/monitor"
	"github.com/enrell/alpine-wifi-bridge/models"
	netfilterHelper "github.com/enrell/alpine-wifi-bridge/netfilter-helper"
	"github.com/enrell/alpine-wifi-bridge/pkg/wifibridge-api/types"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Monitor interface {
	Snapshot() monitor.Snapshot
	RequestReconcile()
}

type RuleReporter interface {
	Status(s models.Settings) []netfilterHelper.RuleStatus
}

type Handler struct {
	monitor  Monitor
	rules    RuleReporter
	logs     *logbuffer.RingBuffer
	settings models.Settings
	backend  string
}

// NewHandler wires the API to the running monitor. rules may be nil when
// iptables cannot be inspected on this host.
func NewHandler(m Monitor, rules RuleReporter, logs *logbuffer.RingBuffer, settings models.Settings, backend string) *Handler {
	return &Handler{
		monitor:  m,
		rules:    rules,
		logs:     logs,
		settings: settings,
		backend:  backend,
	}
}

func (h *Handler) MonitorStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.monitor.Snapshot()
	WriteJson(w, http.StatusOK, types.MonitorStatusRes{
		State:               snap.State.String(),
		ConsecutiveFailures: snap.ConsecutiveFailures,
		Threshold:           snap.Threshold,
		LastTarget:          snap.LastTarget,
		LastProbeOK:         snap.LastProbeOK,
		LastProbeAt:         snap.LastProbeAt,
		LastRuleCheck:       snap.LastRuleCheck,
		Restarts:            snap.Restarts,
		Targets:             snap.Targets,
		Backend:             h.backend,
		WLANIface:           h.settings.WLANIface,
		ETHIface:            h.settings.ETHIface,
		GatewayIP:           h.settings.GatewayIP,
	})
}

func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	if h.rules == nil {
		WriteError(w, http.StatusServiceUnavailable, "rule inspection unavailable")
		return
	}
	status := h.rules.Status(h.settings)
	res := types.RulesRes{
		Backend: h.backend,
		Missing: netfilterHelper.Missing(status),
		Rules:   make([]types.RuleRes, len(status)),
	}
	for i, st := range status {
		res.Rules[i] = types.RuleRes{
			Kind:    st.Kind,
			Table:   st.Table,
			Chain:   st.Chain,
			Rule:    st.Rule,
			Present: st.Present,
			Error:   st.Error,
		}
	}
	WriteJson(w, http.StatusOK, res)
}

func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	minLevel := zerolog.TraceLevel
	if v := r.URL.Query().Get("level"); v != "" {
		lvl, err := zerolog.ParseLevel(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid level")
			return
		}
		minLevel = lvl
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries := h.logs.Tail(minLevel, limit)
	res := types.LogsRes{Logs: make([]types.LogEntryRes, len(entries))}
	for i, e := range entries {
		res.Logs[i] = types.LogEntryRes{
			Time:    e.Time,
			Level:   e.Level,
			Message: e.Message,
			Error:   e.Error,
			Fields:  e.Fields,
		}
	}
	WriteJson(w, http.StatusOK, res)
}

// NetfilterDHook is called after the firewall was reloaded by someone else.
// IPv4 events schedule a reconciliation on the monitor's next tick.
func (h *Handler) NetfilterDHook(w http.ResponseWriter, r *http.Request) {
	req, err := ReadJson[types.NetfilterDHookReq](r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Debug().Str("type", req.Type).Str("table", req.Table).Msg("netfilter.d event")

	if req.Type == "ip6tables" {
		return
	}
	switch req.Table {
	case "", "nat", "filter":
		h.monitor.RequestReconcile()
	}
}
