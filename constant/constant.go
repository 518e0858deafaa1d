package constant

var (
	Version = "dev"
	Commit  = "none"
)

const (
	RuntimeConfigFile = AppConfigDir + "/config"
	MonitorConfigFile = AppConfigDir + "/monitor.yaml"
	DefaultConfigFile = "config/settings.conf"

	PIDFile    = RunDir + "/wifibridge.pid"
	SocketPath = RunDir + "/wifibridge.sock"

	NftablesFile   = NftablesDir + "/alpine-wifi-bridge.nft"
	NftablesScript = LocalDDir + "/nftables.start"

	IPForwardPath     = "/proc/sys/net/ipv4/ip_forward"
	IPTablesNamesPath = "/proc/net/ip_tables_names"
	SysClassNet       = "/sys/class/net"

	NetworkingService = "/etc/init.d/networking"
	IPTablesService   = "/etc/init.d/iptables"
	NftablesService   = "/etc/init.d/nftables"
)
