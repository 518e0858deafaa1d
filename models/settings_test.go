package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettingsGetSetRoundTrip(t *testing.T) {
	s := DefaultSettings()
	for _, k := range RecognizedKeys {
		assert.True(t, s.Set(k, s.Get(k)), "key %s", k)
	}
	assert.Equal(t, DefaultSettings(), s)
	assert.False(t, s.Set("UNKNOWN", "x"))
}

func TestSettingsPortForwardingFlag(t *testing.T) {
	s := DefaultSettings()
	s.Set(KeyEnablePortForwarding, "FALSE")
	assert.False(t, s.EnablePortForwarding)
	assert.Equal(t, "false", s.Get(KeyEnablePortForwarding))

	s.Set(KeyEnablePortForwarding, "true")
	s.WLANIface = "wlan0"
	assert.False(t, s.PortForwarding(), "PC_IP is still empty")
	s.PCIP = "10.42.0.2"
	assert.True(t, s.PortForwarding())
}

func TestLANSubnet(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, "10.42.0.1/24", s.ETHAddress())
	assert.Equal(t, "10.42.0.0/24", s.LANSubnet())

	s.ETHStaticIP = "192.168.8.1"
	s.ETHSubnet = "16"
	assert.Equal(t, "192.168.0.0/16", s.LANSubnet())
}
