package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/enrell/alpine-wifi-bridge/internal/config"
	bridgeErrors "github.com/enrell/alpine-wifi-bridge/internal/errors"
	"github.com/enrell/alpine-wifi-bridge/internal/executor"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

var (
	ErrNoWiFiConfig        = bridgeErrors.New(bridgeErrors.KindFatal, "Wi-Fi configuration not found and no SSID given")
	ErrInvalidCredentials  = bridgeErrors.New(bridgeErrors.KindFatal, "SSID and passphrase must not contain quotes or newlines")
	ErrWPASupplicantFailed = bridgeErrors.New(bridgeErrors.KindFatal, "failed to start wpa_supplicant")
	ErrDHCPFailed          = bridgeErrors.New(bridgeErrors.KindFatal, "failed to obtain an IP address")
)

const connectivityTarget = "8.8.8.8"

// WiFiCredentials are used only when no wpa_supplicant config exists yet.
type WiFiCredentials struct {
	SSID       string
	Passphrase string
}

// Setup brings the bridge up from scratch and returns the settings it
// ended up using. Only missing prerequisites (no Wi-Fi interface, no way to
// associate, no lease) fail it; every other step degrades with a warning.
func (a *App) Setup(ctx context.Context, s models.Settings, creds WiFiCredentials) (models.Settings, error) {
	log.Info().Msg("starting setup")

	if _, err := a.recovery.Backup(ctx, s); err != nil {
		log.Warn().Err(err).Msg("failed to back up network configuration - skipping this step")
	}

	if _, err := a.detector.DetectInterfaces(&s); err != nil {
		if bridgeErrors.IsFatal(err) {
			return s, err
		}
		log.Warn().Err(err).Msg("interface detection failed - skipping this step")
	}
	log.Info().Str("iface", s.WLANIface).Msg("using Wi-Fi interface")

	if err := a.setupWiFi(ctx, s, creds); err != nil {
		return s, err
	}
	a.detector.DetectGateway(&s)
	a.setupEthernet(s)
	a.setupRouting(s)

	if _, err := a.nfHelper.Ensure(ctx, s); err != nil {
		log.Warn().Err(err).Msg("firewall setup incomplete - skipping this step")
	} else if err := a.nfHelper.Persist(ctx, s); err != nil {
		log.Warn().Err(err).Msg("failed to save firewall rules - skipping this step")
	}

	if err := config.SaveRuntime(a.fs, runtimeConfigPath(s), s); err != nil {
		log.Warn().Err(err).Msg("failed to save runtime configuration - skipping this step")
	}

	log.Info().Msg("setup completed")
	return s, nil
}

func (a *App) run(ctx context.Context, cmd executor.Command) executor.Result {
	return a.runner.Run(ctx, cmd, executor.Options{CaptureOutput: true})
}

func (a *App) setupWiFi(ctx context.Context, s models.Settings, creds WiFiCredentials) error {
	log.Info().Msg("setting up Wi-Fi connection")

	exists, err := afero.Exists(a.fs, s.WPAConf)
	if err != nil {
		return bridgeErrors.Wrap(err, bridgeErrors.KindFatal, "failed to check Wi-Fi configuration")
	}
	if exists {
		log.Info().Str("path", s.WPAConf).Msg("using existing Wi-Fi configuration")
	} else if err := a.writeWPAConfig(ctx, s.WPAConf, creds); err != nil {
		return err
	}

	if a.run(ctx, executor.New("pgrep", "-x", "wpa_supplicant")).Success() {
		log.Info().Msg("wpa_supplicant is already running - skipping Wi-Fi connection setup")
	} else {
		log.Info().Str("iface", s.WLANIface).Msg("connecting to Wi-Fi")
		res := a.run(ctx, executor.New("wpa_supplicant", "-B", "-i", s.WLANIface, "-c", s.WPAConf))
		if err := res.Err(); err != nil {
			return bridgeErrors.Wrap(err, bridgeErrors.KindFatal, ErrWPASupplicantFailed.Error())
		}
	}

	addrs, err := a.links.IPv4Addrs(s.WLANIface)
	if err != nil {
		log.Debug().Err(err).Msg("failed to read Wi-Fi addresses")
	}
	if len(addrs) > 0 {
		log.Info().Str("iface", s.WLANIface).Msg("interface already has an IP address - skipping DHCP request")
	} else {
		log.Info().Str("iface", s.WLANIface).Msg("requesting IP via DHCP")
		cmd := executor.New("udhcpc", "-i", s.WLANIface, "-t", "10", "-T", "2")
		if a.monitorCfg.DHCPTimeout > 0 {
			cmd = cmd.WithTimeout(a.monitorCfg.DHCPTimeout)
		}
		if err := a.run(ctx, cmd).Err(); err != nil {
			log.Error().Err(err).Str("iface", s.WLANIface).Msg("DHCP request failed")
			return bridgeErrors.Wrap(err, bridgeErrors.KindFatal, ErrDHCPFailed.Error())
		}
	}

	log.Info().Msg("verifying network connectivity")
	if a.run(ctx, executor.New("ping", "-c", "1", "-W", "5", connectivityTarget)).Success() {
		log.Info().Msg("network connectivity confirmed")
	} else {
		log.Warn().Msg("could not verify internet connectivity - skipping this step")
	}
	return nil
}

// writeWPAConfig generates the network block with wpa_passphrase, feeding
// the passphrase on stdin, and writes a plain PSK block when that fails.
func (a *App) writeWPAConfig(ctx context.Context, path string, creds WiFiCredentials) error {
	if creds.SSID == "" || creds.Passphrase == "" {
		return ErrNoWiFiConfig
	}
	if strings.ContainsAny(creds.SSID+creds.Passphrase, "\"\n\r") {
		return ErrInvalidCredentials
	}
	if err := a.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return bridgeErrors.Wrap(err, bridgeErrors.KindFatal, "failed to create wpa_supplicant directory")
	}

	log.Info().Msg("generating wpa_supplicant configuration")
	res := a.run(ctx, executor.New("wpa_passphrase", creds.SSID).WithStdin(creds.Passphrase+"\n"))
	content := res.Stdout
	if !res.Success() || !strings.Contains(content, "network={") {
		log.Info().Msg("wpa_passphrase failed, writing manual configuration")
		content = fmt.Sprintf("ctrl_interface=/var/run/wpa_supplicant\nupdate_config=1\n\nnetwork={\n    ssid=\"%s\"\n    psk=\"%s\"\n    key_mgmt=WPA-PSK\n}\n", creds.SSID, creds.Passphrase)
	}

	if err := afero.WriteFile(a.fs, path, []byte(content), 0600); err != nil {
		return bridgeErrors.Wrap(err, bridgeErrors.KindFatal, "failed to write Wi-Fi configuration")
	}
	log.Info().Str("path", path).Msg("Wi-Fi configuration saved")
	return nil
}

func (a *App) setupEthernet(s models.Settings) {
	if s.ETHIface == "" {
		log.Warn().Msg("no Ethernet interface found - skipping this step")
		return
	}
	log.Info().Str("iface", s.ETHIface).Msg("setting up Ethernet interface")

	addr := s.ETHAddress()
	if has, _ := a.links.HasAddr(s.ETHIface, addr); has {
		log.Info().Str("addr", addr).Msg("static IP already configured - skipping IP configuration")
	} else {
		if err := a.links.FlushAddrs(s.ETHIface); err != nil {
			log.Warn().Err(err).Msg("failed to flush Ethernet addresses - skipping this step")
		}
		if err := a.links.ReplaceAddr(s.ETHIface, addr); err != nil {
			log.Warn().Err(err).Str("iface", s.ETHIface).Msg("failed to set IP - skipping this step")
		}
	}

	if up, _ := a.links.IsUp(s.ETHIface); up {
		log.Info().Str("iface", s.ETHIface).Msg("interface is already up")
		return
	}
	if err := a.links.SetUp(s.ETHIface); err != nil {
		log.Warn().Err(err).Str("iface", s.ETHIface).Msg("failed to bring up interface - skipping this step")
	}
}

func (a *App) setupRouting(s models.Settings) {
	log.Info().Msg("setting up routing")

	if gw, _ := a.links.DefaultGateway(s.WLANIface); gw != "" {
		log.Info().Str("iface", s.WLANIface).Msg("default route already exists - skipping route configuration")
	} else if err := a.links.ReplaceDefaultRoute(s.GatewayIP, s.WLANIface); err != nil {
		log.Warn().Err(err).Msg("failed to set default route - skipping this step")
	}

	if on, err := a.sysctl.IPForward(); err == nil && on {
		log.Info().Msg("IP forwarding is already enabled")
	} else if err := a.sysctl.SetIPForward(true); err != nil {
		log.Warn().Err(err).Msg("failed to enable IP forwarding - skipping this step")
	}

	if added, err := a.sysctl.PersistIPForward(); err != nil {
		log.Warn().Err(err).Msg("failed to persist IP forwarding - skipping this step")
	} else if added {
		log.Info().Msg("IP forwarding made persistent")
	}
}
