package network

// Interface is one network link as seen by detection.
type Interface struct {
	Index     int
	Name      string
	Loopback  bool
	Wireless  bool
	HasDevice bool
}

// Links is the kernel network state the bridge reads and mutates.
type Links interface {
	List() ([]Interface, error)
	SetUp(name string) error
	SetDown(name string) error
	IsUp(name string) (bool, error)
	FlushAddrs(name string) error
	HasAddr(name, cidr string) (bool, error)
	ReplaceAddr(name, cidr string) error
	IPv4Addrs(name string) ([]string, error)
	DefaultGateway(name string) (string, error)
	ReplaceDefaultRoute(gateway, name string) error
	DeleteDefaultRoute(gateway, name string) error
}
