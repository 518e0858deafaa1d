package recovery

import (
	"context"
	"time"

	"github.com/enrell/alpine-wifi-bridge/internal/executor"
	"github.com/enrell/alpine-wifi-bridge/internal/network"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Firewall removes the bridge rules during restore.
type Firewall interface {
	Remove(ctx context.Context, s models.Settings) error
}

type Timings struct {
	LinkSettleDelay    time.Duration
	StabilizationDelay time.Duration
	CommandTimeout     time.Duration
	DHCPTimeout        time.Duration
}

func TimingsFrom(cfg models.MonitorConfig) Timings {
	return Timings{
		LinkSettleDelay:    cfg.LinkSettleDelay,
		StabilizationDelay: cfg.StabilizationDelay,
		CommandTimeout:     cfg.CommandTimeout,
		DHCPTimeout:        cfg.DHCPTimeout,
	}
}

// Recovery holds the actions that bring the bridge back: network restart,
// one-shot backup and full restore. Every step is best effort.
type Recovery struct {
	runner   executor.Runner
	links    network.Links
	sysctl   *network.Sysctl
	fs       afero.Fs
	firewall Firewall
	timings  Timings

	// Sleep waits between steps; tests replace it.
	Sleep func(ctx context.Context, d time.Duration)
}

func New(runner executor.Runner, links network.Links, sysctl *network.Sysctl, fs afero.Fs, firewall Firewall, timings Timings) *Recovery {
	return &Recovery{
		runner:   runner,
		links:    links,
		sysctl:   sysctl,
		fs:       fs,
		firewall: firewall,
		timings:  timings,
		Sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (r *Recovery) run(ctx context.Context, cmd executor.Command) executor.Result {
	if cmd.Timeout == 0 && r.timings.CommandTimeout > 0 {
		cmd = cmd.WithTimeout(r.timings.CommandTimeout)
	}
	res := r.runner.Run(ctx, cmd, executor.Options{CaptureOutput: true})
	if err := res.Err(); err != nil {
		log.Warn().Err(err).Str("cmd", cmd.String()).Msg("command failed - skipping this step")
	}
	return res
}

func (r *Recovery) step(what string, err error) {
	if err != nil {
		log.Warn().Err(err).Msgf("failed to %s - skipping this step", what)
	}
}
