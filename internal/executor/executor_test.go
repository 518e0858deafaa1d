package executor

import (
	"context"
	"testing"
	"time"

	bridgeErrors "github.com/enrell/alpine-wifi-bridge/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecCapturesOutputAndExitCode(t *testing.T) {
	e := NewExec()
	if _, ok := e.LookPath("sh"); !ok {
		t.Skip("sh not available")
	}

	res := e.Run(context.Background(), New("sh", "-c", "echo out; echo err >&2; exit 3"), Options{CaptureOutput: true})
	require.NoError(t, res.LaunchErr)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.False(t, res.Success())
	assert.EqualError(t, res.Err(), "exit status 3: err")
}

func TestExecStdin(t *testing.T) {
	e := NewExec()
	if _, ok := e.LookPath("cat"); !ok {
		t.Skip("cat not available")
	}

	res := e.Run(context.Background(), New("cat").WithStdin("secret"), Options{CaptureOutput: true})
	require.True(t, res.Success())
	assert.Equal(t, "secret", res.Stdout)
}

func TestExecLaunchFailureIsDistinct(t *testing.T) {
	e := NewExec()
	res := e.Run(context.Background(), New("/nonexistent/wifibridge-binary"), Options{CaptureOutput: true})

	require.Error(t, res.LaunchErr)
	assert.False(t, res.TimedOut)
	assert.True(t, bridgeErrors.Is(res.Err(), ErrLaunch))
}

func TestExecTimeout(t *testing.T) {
	e := NewExec()
	if _, ok := e.LookPath("sleep"); !ok {
		t.Skip("sleep not available")
	}

	start := time.Now()
	res := e.Run(context.Background(), New("sleep", "5").WithTimeout(100*time.Millisecond), Options{CaptureOutput: true})

	assert.True(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
	assert.True(t, bridgeErrors.Is(res.Err(), ErrTimeout))
	assert.Equal(t, bridgeErrors.KindTransient, bridgeErrors.GetKind(res.Err()))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestCommandString(t *testing.T) {
	cmd := New("iptables", "-t", "nat", "-C", "POSTROUTING", "-o", "wlan0", "-j", "MASQUERADE")
	assert.Equal(t, "iptables -t nat -C POSTROUTING -o wlan0 -j MASQUERADE", cmd.String())
	assert.Equal(t, "iptables", cmd.Argv()[0])
}

func TestFakeRecordsAndScripts(t *testing.T) {
	f := NewFake()
	f.DefaultExit = 1
	f.On("iptables -C INPUT -p icmp -j ACCEPT", Result{ExitCode: 0})

	assert.True(t, f.Run(context.Background(), New("iptables", "-C", "INPUT", "-p", "icmp", "-j", "ACCEPT"), Options{}).Success())
	assert.Equal(t, 1, f.Run(context.Background(), New("iptables", "-A", "INPUT"), Options{}).ExitCode)
	assert.Equal(t, []string{"iptables -C INPUT -p icmp -j ACCEPT", "iptables -A INPUT"}, f.Commands())
}
