//go:build !entware

package constant

const (
	AppConfigDir = "/etc/alpine-wifi-bridge"
	RunDir       = "/var/run"
	SysctlConf   = "/etc/sysctl.conf"
	LocalDDir    = "/etc/local.d"
	NftablesDir  = "/etc/nftables"
)
