package netfilterHelper

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	bridgeErrors "github.com/enrell/alpine-wifi-bridge/internal/errors"
	"github.com/enrell/alpine-wifi-bridge/internal/executor"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var (
	ErrNoEthernet = bridgeErrors.New(bridgeErrors.KindDegraded, "no ethernet interface, NAT and forwarding skipped")
	ErrNoWireless = bridgeErrors.New(bridgeErrors.KindDegraded, "no wireless interface, NAT and forwarding skipped")
)

// Strategy applies the full bridge rule set with one backend.
type Strategy interface {
	Backend() Backend
	Ensure(ctx context.Context, s models.Settings) (int, error)
	Remove(ctx context.Context, s models.Settings) error
	Persist(ctx context.Context, s models.Settings) error
}

// NetfilterHelper owns the firewall backend choice for the lifetime of
// the process.
type NetfilterHelper struct {
	runner     executor.Runner
	fs         afero.Fs
	timeout    time.Duration
	reconciler *Reconciler

	once     sync.Once
	strategy Strategy

	inspectorOnce sync.Once
	inspector     TableInspector
	// NewTableInspector is replaced in tests.
	NewTableInspector func() (TableInspector, error)
}

func New(runner executor.Runner, fs afero.Fs, timeout time.Duration) *NetfilterHelper {
	return &NetfilterHelper{
		runner:            runner,
		fs:                fs,
		timeout:           timeout,
		reconciler:        NewReconciler(runner, timeout),
		NewTableInspector: newTableInspector,
	}
}

func (nh *NetfilterHelper) Reconciler() *Reconciler {
	return nh.reconciler
}

// Strategy detects the backend on first use and keeps it.
func (nh *NetfilterHelper) Strategy() Strategy {
	nh.once.Do(func() {
		ipt := &iptablesStrategy{nh: nh}
		switch DetectFirewallBackend(nh.runner, nh.fs) {
		case BackendNftables:
			nh.strategy = &nftablesStrategy{nh: nh, fallback: ipt}
		default:
			nh.strategy = ipt
		}
	})
	return nh.strategy
}

func (nh *NetfilterHelper) Backend() Backend {
	return nh.Strategy().Backend()
}

// Ensure re-asserts every bridge rule and returns how many were added.
// Without both interfaces nothing is applied and a degraded error is
// returned.
func (nh *NetfilterHelper) Ensure(ctx context.Context, s models.Settings) (int, error) {
	if s.ETHIface == "" {
		log.Warn().Msg("no Ethernet interface available - skipping NAT configuration")
		return 0, ErrNoEthernet
	}
	if s.WLANIface == "" {
		log.Warn().Msg("no Wi-Fi interface available - skipping NAT configuration")
		return 0, ErrNoWireless
	}
	applied, err := nh.Strategy().Ensure(ctx, s)
	if applied > 0 {
		log.Info().Int("applied", applied).Str("backend", string(nh.Backend())).Msg("firewall rules applied")
	}
	return applied, err
}

func (nh *NetfilterHelper) Remove(ctx context.Context, s models.Settings) error {
	log.Info().Msg("removing firewall rules")
	return nh.Strategy().Remove(ctx, s)
}

func (nh *NetfilterHelper) Persist(ctx context.Context, s models.Settings) error {
	return nh.Strategy().Persist(ctx, s)
}

func (nh *NetfilterHelper) run(ctx context.Context, cmd executor.Command) executor.Result {
	if nh.timeout > 0 && cmd.Timeout == 0 {
		cmd = cmd.WithTimeout(nh.timeout)
	}
	res := nh.runner.Run(ctx, cmd, executor.Options{CaptureOutput: true})
	if !res.Success() {
		log.Debug().Err(res.Err()).Str("cmd", cmd.String()).Msg("command failed")
	}
	return res
}

func (nh *NetfilterHelper) tableInspector() TableInspector {
	nh.inspectorOnce.Do(func() {
		if nh.NewTableInspector == nil {
			return
		}
		inspector, err := nh.NewTableInspector()
		if err != nil {
			log.Debug().Err(err).Msg("nftables inspection unavailable")
			return
		}
		nh.inspector = inspector
	})
	return nh.inspector
}

func (nh *NetfilterHelper) writeBootScript(path, content string) error {
	if err := nh.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(nh.fs, path, []byte(content), 0755); err != nil {
		return fmt.Errorf("failed to write boot script: %w", err)
	}
	return nh.fs.Chmod(path, 0755)
}
