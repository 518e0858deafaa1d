package config

import (
	"testing"

	bridgeErrors "github.com/enrell/alpine-wifi-bridge/internal/errors"
	"github.com/enrell/alpine-wifi-bridge/internal/network"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectInterfacesByName(t *testing.T) {
	links := network.NewFakeLinks(
		network.Interface{Index: 1, Name: "lo", Loopback: true},
		network.Interface{Index: 2, Name: "eth0", HasDevice: true},
		network.Interface{Index: 3, Name: "wlan0", Wireless: true, HasDevice: true},
		network.Interface{Index: 4, Name: "wlan1", Wireless: true, HasDevice: true},
	)
	s := models.DefaultSettings()

	report, err := NewDetector(links).DetectInterfaces(&s)
	require.NoError(t, err)
	assert.Equal(t, "wlan0", s.WLANIface)
	assert.Equal(t, "eth0", s.ETHIface)
	assert.True(t, report.WLANDetected)
	assert.True(t, report.ETHDetected)
}

func TestDetectWirelessNamePatterns(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "wlan0", want: "wlan0"},
		{name: "wlp2s0", want: "wlp2s0"},
		{name: "wlx001122334455", want: "wlx001122334455"},
		{name: "wl0", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := network.NewFakeLinks(
				network.Interface{Index: 2, Name: "eth0", HasDevice: true},
				network.Interface{Index: 3, Name: tt.name},
			)
			s := models.DefaultSettings()

			_, err := NewDetector(links).DetectInterfaces(&s)
			assert.Equal(t, tt.want, s.WLANIface)
			if tt.want == "" {
				require.ErrorIs(t, err, ErrNoWirelessInterface)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDetectInterfacesFallsBackToMarkers(t *testing.T) {
	links := network.NewFakeLinks(
		network.Interface{Index: 2, Name: "lan", HasDevice: true},
		network.Interface{Index: 3, Name: "radio", Wireless: true, HasDevice: true},
	)
	s := models.DefaultSettings()

	_, err := NewDetector(links).DetectInterfaces(&s)
	require.NoError(t, err)
	assert.Equal(t, "radio", s.WLANIface)
	assert.Equal(t, "lan", s.ETHIface)
}

func TestDetectInterfacesKeepsConfiguredValues(t *testing.T) {
	links := network.NewFakeLinks(network.Interface{Index: 2, Name: "wlan0", Wireless: true})
	s := models.DefaultSettings()
	s.WLANIface = "wlan9"

	report, err := NewDetector(links).DetectInterfaces(&s)
	require.NoError(t, err)
	assert.Equal(t, "wlan9", s.WLANIface)
	assert.Empty(t, s.ETHIface)
	assert.NotEmpty(t, report.Warnings)
}

func TestDetectInterfacesWithoutWireless(t *testing.T) {
	links := network.NewFakeLinks(network.Interface{Index: 2, Name: "eth0", HasDevice: true})
	s := models.DefaultSettings()

	_, err := NewDetector(links).DetectInterfaces(&s)
	require.ErrorIs(t, err, ErrNoWirelessInterface)
	assert.True(t, bridgeErrors.IsFatal(err))
	assert.Equal(t, "eth0", s.ETHIface)
}

func TestDetectGateway(t *testing.T) {
	links := network.NewFakeLinks()
	links.Gateways["wlan0"] = "192.168.1.254"

	s := models.DefaultSettings()
	s.WLANIface = "wlan0"
	report := NewDetector(links).DetectGateway(&s)
	assert.Equal(t, "192.168.1.254", s.GatewayIP)
	assert.True(t, report.GatewayDetected)

	s = models.DefaultSettings()
	s.WLANIface = "wlan1"
	report = NewDetector(links).DetectGateway(&s)
	assert.Equal(t, FallbackGateway, s.GatewayIP)
	assert.True(t, report.GatewayFallback)
}
