package recovery

import (
	"context"
	"path/filepath"

	"github.com/enrell/alpine-wifi-bridge/internal/executor"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Restore undoes the bridge: forwarding off, rules removed, addresses and
// routes dropped, Wi-Fi stopped, links down and the saved rule table loaded
// back. No step stops the ones after it.
func (r *Recovery) Restore(ctx context.Context, s models.Settings) {
	log.Info().Msg("restoring network settings to the original state")

	log.Info().Msg("disabling IP forwarding")
	r.step("disable IP forwarding", r.sysctl.SetIPForward(false))
	r.step("strip persistent IP forwarding", r.sysctl.StripIPForward())

	if r.firewall != nil {
		r.step("remove firewall rules", r.firewall.Remove(ctx, s))
	}

	if s.ETHIface != "" {
		log.Info().Str("iface", s.ETHIface).Msg("removing static IP from Ethernet interface")
		r.step("flush Ethernet addresses", r.links.FlushAddrs(s.ETHIface))
	}
	if s.WLANIface != "" && s.GatewayIP != "" {
		r.step("delete default route", r.links.DeleteDefaultRoute(s.GatewayIP, s.WLANIface))
	}

	log.Info().Msg("stopping wpa_supplicant")
	r.run(ctx, executor.New("pkill", "wpa_supplicant"))

	if s.WLANIface != "" {
		r.step("bring Wi-Fi interface down", r.links.SetDown(s.WLANIface))
	}
	if s.ETHIface != "" {
		r.step("bring Ethernet interface down", r.links.SetDown(s.ETHIface))
	}

	dump := filepath.Join(s.BackupDir, IPTablesFile)
	if data, err := afero.ReadFile(r.fs, dump); err == nil {
		log.Info().Str("path", dump).Msg("restoring iptables rules from backup")
		r.run(ctx, executor.New("iptables-restore").WithStdin(string(data)))
	}

	log.Info().Msg("network settings restored")
}
