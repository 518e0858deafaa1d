package wifibridgeAPI

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/enrell/alpine-wifi-bridge/pkg/wifibridge-api/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveUnix(t *testing.T, h http.Handler) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "api.sock")
	l, err := net.Listen("unix", socket)
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(h)
	srv.Listener = l
	srv.Start()
	t.Cleanup(srv.Close)
	return socket
}

func TestClientMonitorStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/monitor/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.MonitorStatusRes{State: "degraded", ConsecutiveFailures: 2})
	})

	res, err := NewClient(serveUnix(t, mux)).MonitorStatus()
	require.NoError(t, err)
	assert.Equal(t, "degraded", res.State)
	assert.Equal(t, 2, res.ConsecutiveFailures)
}

func TestClientNetfilterDHook(t *testing.T) {
	var got types.NetfilterDHookReq
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/system/hooks/netfilterd", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&got)
	})

	require.NoError(t, NewClient(serveUnix(t, mux)).NetfilterDHook("iptables", "nat"))
	assert.Equal(t, types.NetfilterDHookReq{Type: "iptables", Table: "nat"}, got)
}

func TestClientSurfacesErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/system/logs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "warn", r.URL.Query().Get("level"))
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(types.ErrorRes{Error: "invalid limit"})
	})

	_, err := NewClient(serveUnix(t, mux)).Logs("warn", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid limit")
}
