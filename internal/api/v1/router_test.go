package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/enrell/alpine-wifi-bridge/internal/logbuffer"
	"github.com/enrell/alpine-wifi-bridge/internal/monitor"
	"github.com/enrell/alpine-wifi-bridge/models"
	netfilterHelper "github.com/enrell/alpine-wifi-bridge/netfilter-helper"
	"github.com/enrell/alpine-wifi-bridge/pkg/wifibridge-api/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMonitor struct {
	snap       monitor.Snapshot
	reconciles int
}

func (s *stubMonitor) Snapshot() monitor.Snapshot { return s.snap }
func (s *stubMonitor) RequestReconcile()          { s.reconciles++ }

type stubRules struct{}

func (stubRules) Status(models.Settings) []netfilterHelper.RuleStatus {
	return []netfilterHelper.RuleStatus{
		{Kind: "NAT", Table: "nat", Chain: "POSTROUTING", Rule: "iptables -t nat -A POSTROUTING -o wlan0 -j MASQUERADE", Present: true},
		{Kind: "OTHER", Table: "filter", Chain: "INPUT", Rule: "iptables -A INPUT -p icmp -j ACCEPT"},
	}
}

func newTestRouter(m *stubMonitor, logs *logbuffer.RingBuffer) http.Handler {
	s := models.DefaultSettings()
	s.WLANIface = "wlan0"
	s.ETHIface = "eth0"
	reg := prometheus.NewRegistry()
	monitor.NewMetrics(reg)
	return NewRouter(NewHandler(m, stubRules{}, logs, s, "iptables"), reg)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMonitorStatus(t *testing.T) {
	m := &stubMonitor{snap: monitor.Snapshot{State: monitor.StateDegraded, ConsecutiveFailures: 2, Threshold: 3}}
	rec := do(t, newTestRouter(m, logbuffer.NewRingBuffer(10)), http.MethodGet, "/v1/monitor/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res types.MonitorStatusRes
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "degraded", res.State)
	assert.Equal(t, 2, res.ConsecutiveFailures)
	assert.Equal(t, "wlan0", res.WLANIface)
	assert.Equal(t, "iptables", res.Backend)
}

func TestRules(t *testing.T) {
	rec := do(t, newTestRouter(&stubMonitor{}, logbuffer.NewRingBuffer(10)), http.MethodGet, "/v1/system/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res types.RulesRes
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.Rules, 2)
	assert.Equal(t, 1, res.Missing)
}

func TestLogs(t *testing.T) {
	logs := logbuffer.NewRingBuffer(10)
	logs.Add(logbuffer.LogEntry{Level: "info", Message: "starting"})
	logs.Add(logbuffer.LogEntry{Level: "warn", Message: "probe failed"})
	h := newTestRouter(&stubMonitor{}, logs)

	rec := do(t, h, http.MethodGet, "/v1/system/logs?level=warn", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res types.LogsRes
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Logs, 1)
	assert.Equal(t, "probe failed", res.Logs[0].Message)

	rec = do(t, h, http.MethodGet, "/v1/system/logs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/system/logs?level=loud", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNetfilterDHookRequestsReconcile(t *testing.T) {
	m := &stubMonitor{}
	h := newTestRouter(m, logbuffer.NewRingBuffer(10))

	rec := do(t, h, http.MethodPost, "/v1/system/hooks/netfilterd", `{"type":"iptables","table":"nat"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, m.reconciles)

	do(t, h, http.MethodPost, "/v1/system/hooks/netfilterd", `{"type":"ip6tables","table":"nat"}`)
	do(t, h, http.MethodPost, "/v1/system/hooks/netfilterd", `{"type":"iptables","table":"mangle"}`)
	assert.Equal(t, 1, m.reconciles)

	rec = do(t, h, http.MethodPost, "/v1/system/hooks/netfilterd", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestRouter(&stubMonitor{}, logbuffer.NewRingBuffer(10)), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wifibridge_network_restarts_total")
}
