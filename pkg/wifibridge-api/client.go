package wifibridgeAPI

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/enrell/alpine-wifi-bridge/pkg/wifibridge-api/types"
)

const baseURL = "http://unix/api/v1"

// Client talks to the monitor daemon over its unix socket.
type Client struct {
	client *http.Client
}

func NewClient(socketPath string) Client {
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
	}
	return Client{client: client}
}

func (c Client) NetfilterDHook(ipttype, table string) error {
	body := types.NetfilterDHookReq{
		Type:  ipttype,
		Table: table,
	}
	return c.do(http.MethodPost, "/system/hooks/netfilterd", body, nil)
}

func (c Client) MonitorStatus() (types.MonitorStatusRes, error) {
	var res types.MonitorStatusRes
	err := c.do(http.MethodGet, "/monitor/status", nil, &res)
	return res, err
}

func (c Client) Rules() (types.RulesRes, error) {
	var res types.RulesRes
	err := c.do(http.MethodGet, "/system/rules", nil, &res)
	return res, err
}

func (c Client) Logs(level string, limit int) (types.LogsRes, error) {
	q := url.Values{}
	if level != "" {
		q.Set("level", level)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/system/logs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var res types.LogsRes
	err := c.do(http.MethodGet, path, nil, &res)
	return res, err
}

func (c Client) do(method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling failed: %w", err)
		}
		reader = bytes.NewReader(bodyJSON)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		var e types.ErrorRes
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response failed: %w", err)
	}
	return nil
}
