//go:build entware

package constant

const (
	AppConfigDir = "/opt/etc/alpine-wifi-bridge"
	RunDir       = "/opt/var/run"
	SysctlConf   = "/opt/etc/sysctl.conf"
	LocalDDir    = "/opt/etc/local.d"
	NftablesDir  = "/opt/etc/nftables"
)
