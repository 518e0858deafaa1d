package config

import (
	bridgeErrors "github.com/enrell/alpine-wifi-bridge/internal/errors"
	"github.com/enrell/alpine-wifi-bridge/internal/network"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/rs/zerolog/log"
)

// FallbackGateway is used when no default route through the Wi-Fi interface
// can be found.
const FallbackGateway = "192.168.0.1"

var (
	ErrNoWirelessInterface = bridgeErrors.New(bridgeErrors.KindFatal, "no wireless interface found")
	ErrNoEthernetInterface = bridgeErrors.New(bridgeErrors.KindDegraded, "no ethernet interface found")
)

var (
	wirelessPatterns = []string{"wlan*", "wlp*", "wlx*"}
	ethernetPatterns = []string{"eth*", "enp*", "eno*", "ens*", "enx*", "end*"}
)

// Report describes what detection filled in.
type Report struct {
	WLANDetected    bool
	ETHDetected     bool
	GatewayDetected bool
	GatewayFallback bool
	Warnings        []string
}

// Detector fills in empty interface and gateway settings from the kernel.
type Detector struct {
	links network.Links
}

func NewDetector(links network.Links) *Detector {
	return &Detector{links: links}
}

// DetectInterfaces fills WLANIface and ETHIface when they are empty. A
// missing Wi-Fi interface is returned as ErrNoWirelessInterface; the caller
// decides whether that is fatal. A missing Ethernet interface only lands in
// the report.
func (d *Detector) DetectInterfaces(s *models.Settings) (Report, error) {
	var report Report
	if s.WLANIface != "" && s.ETHIface != "" {
		return report, nil
	}

	ifaces, err := d.links.List()
	if err != nil {
		return report, bridgeErrors.Wrap(err, bridgeErrors.KindDegraded, "failed to list interfaces")
	}

	if s.WLANIface == "" {
		if name := pick(ifaces, isWireless, ""); name != "" {
			s.WLANIface = name
			report.WLANDetected = true
			log.Info().Str("iface", name).Msg("detected Wi-Fi interface")
		}
	}
	if s.ETHIface == "" {
		if name := pick(ifaces, isEthernet, s.WLANIface); name != "" {
			s.ETHIface = name
			report.ETHDetected = true
			log.Info().Str("iface", name).Msg("detected Ethernet interface")
		} else {
			report.Warnings = append(report.Warnings, ErrNoEthernetInterface.Error())
			log.Warn().Msg("no Ethernet interface detected - bridge will run WAN-only")
		}
	}

	if s.WLANIface == "" {
		return report, ErrNoWirelessInterface
	}
	return report, nil
}

// DetectGateway fills GatewayIP from the default route through the Wi-Fi
// interface, falling back to FallbackGateway.
func (d *Detector) DetectGateway(s *models.Settings) Report {
	var report Report
	if s.GatewayIP != "" {
		return report
	}
	if s.WLANIface != "" {
		gw, err := d.links.DefaultGateway(s.WLANIface)
		if err != nil {
			log.Debug().Err(err).Str("iface", s.WLANIface).Msg("default gateway lookup failed")
		}
		if gw != "" {
			s.GatewayIP = gw
			report.GatewayDetected = true
			log.Info().Str("gateway", gw).Msg("detected gateway")
			return report
		}
	}
	s.GatewayIP = FallbackGateway
	report.GatewayFallback = true
	report.Warnings = append(report.Warnings, "gateway not detected, using "+FallbackGateway)
	log.Warn().Str("gateway", FallbackGateway).Msg("could not detect gateway IP, using default")
	return report
}

// pick returns the first interface, in ascending index order, accepted by
// match. Naming heuristics win over capability markers.
func pick(ifaces []network.Interface, match func(network.Interface, bool) bool, exclude string) string {
	for _, byName := range []bool{true, false} {
		for _, iface := range ifaces {
			if iface.Loopback || iface.Name == exclude {
				continue
			}
			if match(iface, byName) {
				return iface.Name
			}
		}
	}
	return ""
}

func isWireless(iface network.Interface, byName bool) bool {
	if byName {
		return matchAny(wirelessPatterns, iface.Name)
	}
	return iface.Wireless
}

func isEthernet(iface network.Interface, byName bool) bool {
	if byName {
		return !iface.Wireless && matchAny(ethernetPatterns, iface.Name)
	}
	return !iface.Wireless && iface.HasDevice
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if wildcard.Match(p, name) {
			return true
		}
	}
	return false
}
