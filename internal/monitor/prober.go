package monitor

import (
	"context"
	"strconv"
	"time"

	bridgeErrors "github.com/enrell/alpine-wifi-bridge/internal/errors"
	"github.com/enrell/alpine-wifi-bridge/internal/executor"

	probing "github.com/prometheus-community/pro-bing"
)

var ErrProbeFailed = bridgeErrors.New(bridgeErrors.KindTransient, "probe failed")

// Prober sends one liveness check to target.
type Prober interface {
	Probe(ctx context.Context, target string) error
}

// ICMPProber sends a single echo request and waits at most Timeout.
type ICMPProber struct {
	Timeout    time.Duration
	Privileged bool
}

func (p *ICMPProber) Probe(ctx context.Context, target string) error {
	pinger, err := probing.NewPinger(target)
	if err != nil {
		return bridgeErrors.Wrap(err, bridgeErrors.KindTransient, "failed to create pinger")
	}
	pinger.Count = 1
	pinger.Timeout = p.Timeout
	pinger.SetPrivileged(p.Privileged)

	if err := pinger.RunWithContext(ctx); err != nil {
		return bridgeErrors.Wrap(err, bridgeErrors.KindTransient, "ping failed")
	}
	if pinger.Statistics().PacketsRecv == 0 {
		return bridgeErrors.Wrapf(ErrProbeFailed, bridgeErrors.KindTransient, "no reply from %s", target)
	}
	return nil
}

// CommandProber runs the system ping binary, for hosts where raw sockets
// are not available to the daemon.
type CommandProber struct {
	Runner  executor.Runner
	Timeout time.Duration
}

func (p *CommandProber) Probe(ctx context.Context, target string) error {
	wait := int(p.Timeout / time.Second)
	if wait < 1 {
		wait = 1
	}
	cmd := executor.New("ping", "-c", "1", "-W", strconv.Itoa(wait), target).
		WithTimeout(p.Timeout + 2*time.Second)

	res := p.Runner.Run(ctx, cmd, executor.Options{CaptureOutput: true})
	if res.Success() {
		return nil
	}
	if res.TimedOut {
		return res.Err()
	}
	return bridgeErrors.Wrapf(res.Err(), bridgeErrors.KindTransient, "ping %s failed", target)
}
