package app

import (
	"path/filepath"

	"github.com/enrell/alpine-wifi-bridge/internal/config"
	bridgeErrors "github.com/enrell/alpine-wifi-bridge/internal/errors"
	"github.com/enrell/alpine-wifi-bridge/internal/executor"
	"github.com/enrell/alpine-wifi-bridge/internal/logbuffer"
	"github.com/enrell/alpine-wifi-bridge/internal/network"
	"github.com/enrell/alpine-wifi-bridge/internal/recovery"
	"github.com/enrell/alpine-wifi-bridge/models"
	netfilterHelper "github.com/enrell/alpine-wifi-bridge/netfilter-helper"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Deps are the system collaborators. Zero fields get the real
// implementations.
type Deps struct {
	Fs     afero.Fs
	Runner executor.Runner
	Links  network.Links
}

// App ties the bridge components together for the CLI commands.
type App struct {
	fs         afero.Fs
	runner     executor.Runner
	links      network.Links
	sysctl     *network.Sysctl
	detector   *config.Detector
	nfHelper   *netfilterHelper.NetfilterHelper
	recovery   *recovery.Recovery
	monitorCfg models.MonitorConfig
	logBuffer  *logbuffer.RingBuffer
}

func New(deps Deps, monitorCfg models.MonitorConfig, logBuffer *logbuffer.RingBuffer) *App {
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Runner == nil {
		exec := executor.NewExec()
		if monitorCfg.CommandTimeout > 0 {
			exec.DefaultTimeout = monitorCfg.CommandTimeout
		}
		deps.Runner = exec
	}
	if deps.Links == nil {
		deps.Links = network.NewNetlinkManager(deps.Fs)
	}
	if logBuffer == nil {
		logBuffer = logbuffer.NewRingBuffer(500)
	}

	a := &App{
		fs:         deps.Fs,
		runner:     deps.Runner,
		links:      deps.Links,
		sysctl:     network.NewSysctl(deps.Fs),
		detector:   config.NewDetector(deps.Links),
		monitorCfg: monitorCfg,
		logBuffer:  logBuffer,
	}
	a.nfHelper = netfilterHelper.New(a.runner, a.fs, monitorCfg.CommandTimeout)
	a.recovery = recovery.New(a.runner, a.links, a.sysctl, a.fs, a.nfHelper, recovery.TimingsFrom(monitorCfg))
	return a
}

func (a *App) LogBuffer() *logbuffer.RingBuffer {
	return a.logBuffer
}

func (a *App) NetfilterHelper() *netfilterHelper.NetfilterHelper {
	return a.nfHelper
}

func (a *App) Recovery() *recovery.Recovery {
	return a.recovery
}

func (a *App) MonitorConfig() models.MonitorConfig {
	return a.monitorCfg
}

func (a *App) Fs() afero.Fs {
	return a.fs
}

// ResolveSettings loads the settings file and fills in interfaces and the
// gateway from the kernel. A missing Wi-Fi interface is returned as
// config.ErrNoWirelessInterface together with the settings; callers decide
// whether that is fatal.
func (a *App) ResolveSettings(path string) (models.Settings, error) {
	s, err := config.Load(a.fs, path)
	if err != nil {
		return s, bridgeErrors.Wrap(err, bridgeErrors.KindFatal, "failed to load configuration")
	}

	_, detectErr := a.detector.DetectInterfaces(&s)
	if detectErr != nil && !bridgeErrors.Is(detectErr, config.ErrNoWirelessInterface) {
		log.Warn().Err(detectErr).Msg("interface detection failed - skipping this step")
		detectErr = nil
	}
	a.detector.DetectGateway(&s)

	log.Info().
		Str("wlan", s.WLANIface).
		Str("eth", s.ETHIface).
		Str("gateway", s.GatewayIP).
		Msg("using network settings")
	return s, detectErr
}

func runtimeConfigPath(s models.Settings) string {
	return filepath.Join(s.ConfigDir, "config")
}
