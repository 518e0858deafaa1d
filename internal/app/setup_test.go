package app

import (
	"context"
	"testing"

	"github.com/enrell/alpine-wifi-bridge/constant"
	"github.com/enrell/alpine-wifi-bridge/internal/config"
	bridgeErrors "github.com/enrell/alpine-wifi-bridge/internal/errors"
	"github.com/enrell/alpine-wifi-bridge/internal/executor"
	"github.com/enrell/alpine-wifi-bridge/internal/network"
	"github.com/enrell/alpine-wifi-bridge/models"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	fs     afero.Fs
	runner *executor.Fake
	links  *network.FakeLinks
	app    *App
}

func newTestEnv(t *testing.T, ifaces ...network.Interface) *testEnv {
	t.Helper()
	env := &testEnv{
		fs:     afero.NewMemMapFs(),
		runner: executor.NewFake(),
		links:  network.NewFakeLinks(ifaces...),
	}
	require.NoError(t, afero.WriteFile(env.fs, constant.IPForwardPath, []byte("0\n"), 0644))
	require.NoError(t, afero.WriteFile(env.fs, constant.SysctlConf, []byte("kernel.panic=10\n"), 0644))

	cfg := models.DefaultMonitorConfig()
	cfg.StabilizationDelay = 0
	cfg.LinkSettleDelay = 0
	env.app = New(Deps{Fs: env.fs, Runner: env.runner, Links: env.links}, cfg, nil)
	return env
}

func bridgeIfaces() []network.Interface {
	return []network.Interface{
		{Index: 1, Name: "lo", Loopback: true},
		{Index: 2, Name: "eth0", HasDevice: true},
		{Index: 3, Name: "wlan0", Wireless: true, HasDevice: true},
	}
}

func TestSetupFailsWithoutWireless(t *testing.T) {
	env := newTestEnv(t, network.Interface{Index: 2, Name: "eth0", HasDevice: true})

	_, err := env.app.Setup(context.Background(), models.DefaultSettings(), WiFiCredentials{})
	require.ErrorIs(t, err, config.ErrNoWirelessInterface)
	assert.True(t, bridgeErrors.IsFatal(err))
}

func TestSetupFailsWithoutCredentials(t *testing.T) {
	env := newTestEnv(t, bridgeIfaces()...)

	_, err := env.app.Setup(context.Background(), models.DefaultSettings(), WiFiCredentials{})
	require.ErrorIs(t, err, ErrNoWiFiConfig)
}

func TestSetupFullSequence(t *testing.T) {
	env := newTestEnv(t, bridgeIfaces()...)
	env.runner.On("pgrep -x wpa_supplicant", executor.Result{ExitCode: 1})
	env.runner.On("wpa_passphrase home", executor.Result{Stdout: "network={\n\tssid=\"home\"\n\tpsk=abc\n}\n"})
	env.runner.OnRun = func(cmd executor.Command) (executor.Result, bool) {
		// every iptables check misses so each rule gets added
		if cmd.Name == "iptables" && len(cmd.Args) > 0 && (cmd.Args[0] == "-C" || (len(cmd.Args) > 2 && cmd.Args[2] == "-C")) {
			return executor.Result{ExitCode: 1}, true
		}
		return executor.Result{}, false
	}

	s, err := env.app.Setup(context.Background(), models.DefaultSettings(), WiFiCredentials{SSID: "home", Passphrase: "secret pass"})
	require.NoError(t, err)
	assert.Equal(t, "wlan0", s.WLANIface)
	assert.Equal(t, "eth0", s.ETHIface)
	assert.Equal(t, config.FallbackGateway, s.GatewayIP)

	wpa, err := afero.ReadFile(env.fs, s.WPAConf)
	require.NoError(t, err)
	assert.Contains(t, string(wpa), `ssid="home"`)

	var passphrase executor.Command
	for _, c := range env.runner.Recorded() {
		if c.Name == "wpa_passphrase" {
			passphrase = c
		}
	}
	assert.Equal(t, []string{"home"}, passphrase.Args)
	assert.Equal(t, "secret pass\n", passphrase.Stdin)

	cmds := env.runner.Commands()
	assert.Contains(t, cmds, "wpa_supplicant -B -i wlan0 -c /etc/wpa_supplicant/wpa_supplicant.conf")
	assert.Contains(t, cmds, "udhcpc -i wlan0 -t 10 -T 2")
	assert.Len(t, env.runner.CommandsWithPrefix("iptables -t nat -A"), 1)
	assert.Len(t, env.runner.CommandsWithPrefix("iptables -A"), 10)

	assert.Equal(t, []string{
		"FlushAddrs eth0",
		"ReplaceAddr eth0 10.42.0.1/24",
		"SetUp eth0",
		"ReplaceDefaultRoute 192.168.0.1 wlan0",
	}, env.links.CallLog())

	forward, err := afero.ReadFile(env.fs, constant.IPForwardPath)
	require.NoError(t, err)
	assert.Equal(t, "1\n", string(forward))
	sysctl, err := afero.ReadFile(env.fs, constant.SysctlConf)
	require.NoError(t, err)
	assert.Contains(t, string(sysctl), "net.ipv4.ip_forward=1")

	saved, err := config.Load(env.fs, "/etc/alpine-wifi-bridge/config")
	require.NoError(t, err)
	assert.Equal(t, s, saved)

	marker, err := afero.Exists(env.fs, "/etc/alpine-wifi-bridge/backup/network_config.bak")
	require.NoError(t, err)
	assert.True(t, marker)
}

func TestSetupManualWPAFallback(t *testing.T) {
	env := newTestEnv(t, bridgeIfaces()...)
	env.runner.On("wpa_passphrase home", executor.Result{ExitCode: 1})

	s, err := env.app.Setup(context.Background(), models.DefaultSettings(), WiFiCredentials{SSID: "home", Passphrase: "secret"})
	require.NoError(t, err)

	wpa, err := afero.ReadFile(env.fs, s.WPAConf)
	require.NoError(t, err)
	assert.Contains(t, string(wpa), "psk=\"secret\"")
	assert.Contains(t, string(wpa), "key_mgmt=WPA-PSK")
	// wpa_supplicant already running
	assert.Empty(t, env.runner.CommandsWithPrefix("wpa_supplicant"))
}

func TestSetupSkipsDHCPWhenAddressed(t *testing.T) {
	env := newTestEnv(t, bridgeIfaces()...)
	env.links.Addrs["wlan0"] = []string{"192.168.1.50/24"}
	env.links.Gateways["wlan0"] = "192.168.1.1"
	require.NoError(t, afero.WriteFile(env.fs, "/etc/wpa_supplicant/wpa_supplicant.conf", []byte("network={}\n"), 0600))

	s, err := env.app.Setup(context.Background(), models.DefaultSettings(), WiFiCredentials{})
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", s.GatewayIP)
	assert.Empty(t, env.runner.CommandsWithPrefix("udhcpc"))
	assert.Empty(t, env.runner.CommandsWithPrefix("wpa_passphrase"))
	assert.NotContains(t, env.links.CallLog(), "ReplaceDefaultRoute 192.168.1.1 wlan0")
}

func TestSetupDHCPFailureIsFatal(t *testing.T) {
	env := newTestEnv(t, bridgeIfaces()...)
	require.NoError(t, afero.WriteFile(env.fs, "/etc/wpa_supplicant/wpa_supplicant.conf", []byte("network={}\n"), 0600))
	env.runner.On("udhcpc -i wlan0 -t 10 -T 2", executor.Result{ExitCode: 1})

	_, err := env.app.Setup(context.Background(), models.DefaultSettings(), WiFiCredentials{})
	require.ErrorIs(t, err, ErrDHCPFailed)
	assert.True(t, bridgeErrors.IsFatal(err))
}

func TestSetupWPASupplicantFailureIsFatal(t *testing.T) {
	env := newTestEnv(t, bridgeIfaces()...)
	require.NoError(t, afero.WriteFile(env.fs, "/etc/wpa_supplicant/wpa_supplicant.conf", []byte("network={}\n"), 0600))
	env.runner.On("pgrep -x wpa_supplicant", executor.Result{ExitCode: 1})
	env.runner.On("wpa_supplicant -B -i wlan0 -c /etc/wpa_supplicant/wpa_supplicant.conf", executor.Result{ExitCode: 255})

	_, err := env.app.Setup(context.Background(), models.DefaultSettings(), WiFiCredentials{})
	require.ErrorIs(t, err, ErrWPASupplicantFailed)
	assert.Empty(t, env.runner.CommandsWithPrefix("udhcpc"))
}

func TestRestoreRemovesSetupRules(t *testing.T) {
	env := newTestEnv(t, bridgeIfaces()...)
	s := models.DefaultSettings()
	s.WLANIface = "wlan0"
	s.ETHIface = "eth0"
	s.GatewayIP = "192.168.1.1"

	env.app.Restore(context.Background(), s)

	deletes := env.runner.CommandsWithPrefix("iptables -t nat -D")
	deletes = append(deletes, env.runner.CommandsWithPrefix("iptables -D")...)
	assert.Len(t, deletes, 12)
	assert.Contains(t, env.runner.Commands(), "pkill wpa_supplicant")
}

func TestResolveSettingsReportsMissingWireless(t *testing.T) {
	env := newTestEnv(t, network.Interface{Index: 2, Name: "eth0", HasDevice: true})

	s, err := env.app.ResolveSettings("/nonexistent")
	require.ErrorIs(t, err, config.ErrNoWirelessInterface)
	assert.Equal(t, "eth0", s.ETHIface)
	assert.Equal(t, config.FallbackGateway, s.GatewayIP)
}
