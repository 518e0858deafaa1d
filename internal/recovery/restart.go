package recovery

import (
	"context"

	"github.com/enrell/alpine-wifi-bridge/constant"
	"github.com/enrell/alpine-wifi-bridge/internal/executor"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// RestartNetwork restarts networking through the init script when it is
// installed, or cycles the Wi-Fi link by hand otherwise. IP forwarding is
// switched back on at the end in both cases.
func (r *Recovery) RestartNetwork(ctx context.Context, s models.Settings) {
	log.Info().Msg("restarting network")

	if exists, _ := afero.Exists(r.fs, constant.NetworkingService); exists {
		r.run(ctx, executor.New(constant.NetworkingService, "restart"))
	} else {
		log.Info().Msg("networking service not found, using manual restart")
		r.restartWireless(ctx, s)
	}

	log.Info().Dur("delay", r.timings.StabilizationDelay).Msg("waiting for network stabilization")
	r.Sleep(ctx, r.timings.StabilizationDelay)

	log.Info().Msg("ensuring IP forwarding is enabled")
	r.step("enable IP forwarding", r.sysctl.SetIPForward(true))
}

func (r *Recovery) restartWireless(ctx context.Context, s models.Settings) {
	if s.WLANIface == "" {
		log.Warn().Msg("no Wi-Fi interface configured - skipping this step")
		return
	}

	log.Info().Str("iface", s.WLANIface).Msg("restarting Wi-Fi interface")
	r.step("bring Wi-Fi interface down", r.links.SetDown(s.WLANIface))
	r.Sleep(ctx, r.timings.LinkSettleDelay)
	r.step("bring Wi-Fi interface up", r.links.SetUp(s.WLANIface))
	r.Sleep(ctx, r.timings.LinkSettleDelay)

	r.run(ctx, executor.New("udhcpc", "-i", s.WLANIface).WithTimeout(r.timings.DHCPTimeout))

	if s.GatewayIP != "" {
		log.Info().Str("gateway", s.GatewayIP).Msg("setting default route")
		r.step("replace default route", r.links.ReplaceDefaultRoute(s.GatewayIP, s.WLANIface))
	}
}
