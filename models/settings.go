package models

import (
	"net/netip"
	"strings"
)

// Key names a recognised setting in the KEY=value settings file.
type Key string

const (
	KeyWLANIface            Key = "WLAN_IFACE"
	KeyETHIface             Key = "ETH_IFACE"
	KeyGatewayIP            Key = "GATEWAY_IP"
	KeyETHStaticIP          Key = "ETH_STATIC_IP"
	KeyETHSubnet            Key = "ETH_SUBNET"
	KeyWPAConf              Key = "WPA_CONF"
	KeyConfigDir            Key = "CONFIG_DIR"
	KeyBackupDir            Key = "BACKUP_DIR"
	KeyIPTablesRules        Key = "IPTABLES_RULES"
	KeyIPTablesScript       Key = "IPTABLES_SCRIPT"
	KeyEnablePortForwarding Key = "ENABLE_PORT_FORWARDING"
	KeyPCIP                 Key = "PC_IP"
)

// RecognizedKeys is the fixed key order used when reading and writing
// settings files.
var RecognizedKeys = []Key{
	KeyWLANIface,
	KeyETHIface,
	KeyGatewayIP,
	KeyETHStaticIP,
	KeyETHSubnet,
	KeyWPAConf,
	KeyConfigDir,
	KeyBackupDir,
	KeyIPTablesRules,
	KeyIPTablesScript,
	KeyEnablePortForwarding,
	KeyPCIP,
}

func IsRecognized(key string) bool {
	for _, k := range RecognizedKeys {
		if string(k) == key {
			return true
		}
	}
	return false
}

// Settings is the typed form of the settings file. Empty interface and
// gateway fields mean "detect at runtime".
type Settings struct {
	WLANIface            string
	ETHIface             string
	GatewayIP            string
	ETHStaticIP          string
	ETHSubnet            string
	WPAConf              string
	ConfigDir            string
	BackupDir            string
	IPTablesRules        string
	IPTablesScript       string
	EnablePortForwarding bool
	PCIP                 string
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		ETHStaticIP:          "10.42.0.1",
		ETHSubnet:            "24",
		WPAConf:              "/etc/wpa_supplicant/wpa_supplicant.conf",
		ConfigDir:            "/etc/alpine-wifi-bridge",
		BackupDir:            "/etc/alpine-wifi-bridge/backup",
		IPTablesRules:        "/etc/iptables/rules.v4",
		IPTablesScript:       "/etc/local.d/iptables.start",
		EnablePortForwarding: true,
	}
}

// Get returns the string form of a setting, as written to a settings file.
func (s Settings) Get(key Key) string {
	switch key {
	case KeyWLANIface:
		return s.WLANIface
	case KeyETHIface:
		return s.ETHIface
	case KeyGatewayIP:
		return s.GatewayIP
	case KeyETHStaticIP:
		return s.ETHStaticIP
	case KeyETHSubnet:
		return s.ETHSubnet
	case KeyWPAConf:
		return s.WPAConf
	case KeyConfigDir:
		return s.ConfigDir
	case KeyBackupDir:
		return s.BackupDir
	case KeyIPTablesRules:
		return s.IPTablesRules
	case KeyIPTablesScript:
		return s.IPTablesScript
	case KeyEnablePortForwarding:
		if s.EnablePortForwarding {
			return "true"
		}
		return "false"
	case KeyPCIP:
		return s.PCIP
	}
	return ""
}

// Set assigns a setting from its string form. It reports false for keys it
// does not know.
func (s *Settings) Set(key Key, value string) bool {
	switch key {
	case KeyWLANIface:
		s.WLANIface = value
	case KeyETHIface:
		s.ETHIface = value
	case KeyGatewayIP:
		s.GatewayIP = value
	case KeyETHStaticIP:
		s.ETHStaticIP = value
	case KeyETHSubnet:
		s.ETHSubnet = value
	case KeyWPAConf:
		s.WPAConf = value
	case KeyConfigDir:
		s.ConfigDir = value
	case KeyBackupDir:
		s.BackupDir = value
	case KeyIPTablesRules:
		s.IPTablesRules = value
	case KeyIPTablesScript:
		s.IPTablesScript = value
	case KeyEnablePortForwarding:
		s.EnablePortForwarding = strings.EqualFold(strings.TrimSpace(value), "true")
	case KeyPCIP:
		s.PCIP = value
	default:
		return false
	}
	return true
}

// Map returns every recognised key with its string value.
func (s Settings) Map() map[Key]string {
	m := make(map[Key]string, len(RecognizedKeys))
	for _, k := range RecognizedKeys {
		m[k] = s.Get(k)
	}
	return m
}

// ETHAddress is the static LAN address in CIDR form, e.g. 10.42.0.1/24.
func (s Settings) ETHAddress() string {
	return s.ETHStaticIP + "/" + s.ETHSubnet
}

// LANSubnet is the network of the static LAN address, e.g. 10.42.0.0/24.
// It falls back to the address itself when it does not parse.
func (s Settings) LANSubnet() string {
	prefix, err := netip.ParsePrefix(s.ETHAddress())
	if err != nil {
		return s.ETHAddress()
	}
	return prefix.Masked().String()
}

// PortForwarding reports whether the DNAT rules towards PC_IP apply.
func (s Settings) PortForwarding() bool {
	return s.EnablePortForwarding && s.PCIP != "" && s.WLANIface != ""
}
