package network

import (
	"fmt"
	"net"
	"path/filepath"
	"sort"

	"github.com/enrell/alpine-wifi-bridge/constant"

	"github.com/spf13/afero"
	"github.com/vishvananda/netlink"
)

// NetlinkManager implements Links over rtnetlink. Wireless and device
// markers are read from sysfs.
type NetlinkManager struct {
	fs          afero.Fs
	sysClassNet string
}

func NewNetlinkManager(fs afero.Fs) *NetlinkManager {
	return &NetlinkManager{fs: fs, sysClassNet: constant.SysClassNet}
}

func (m *NetlinkManager) sysfsExists(iface, marker string) bool {
	ok, _ := afero.Exists(m.fs, filepath.Join(m.sysClassNet, iface, marker))
	return ok
}

func (m *NetlinkManager) List() ([]Interface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	ifaces := make([]Interface, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		ifaces = append(ifaces, Interface{
			Index:     attrs.Index,
			Name:      attrs.Name,
			Loopback:  attrs.Flags&net.FlagLoopback != 0,
			Wireless:  m.sysfsExists(attrs.Name, "wireless") || m.sysfsExists(attrs.Name, "phy80211"),
			HasDevice: m.sysfsExists(attrs.Name, "device"),
		})
	}
	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Index < ifaces[j].Index })
	return ifaces, nil
}

func linkByName(name string) (netlink.Link, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find link %s: %w", name, err)
	}
	return link, nil
}

func (m *NetlinkManager) SetUp(name string) error {
	link, err := linkByName(name)
	if err != nil {
		return err
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("failed to set %s up: %w", name, err)
	}
	return nil
}

func (m *NetlinkManager) SetDown(name string) error {
	link, err := linkByName(name)
	if err != nil {
		return err
	}
	if err := netlink.LinkSetDown(link); err != nil {
		return fmt.Errorf("failed to set %s down: %w", name, err)
	}
	return nil
}

func (m *NetlinkManager) IsUp(name string) (bool, error) {
	link, err := linkByName(name)
	if err != nil {
		return false, err
	}
	return link.Attrs().Flags&net.FlagUp != 0, nil
}

func (m *NetlinkManager) FlushAddrs(name string) error {
	link, err := linkByName(name)
	if err != nil {
		return err
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
	if err != nil {
		return fmt.Errorf("failed to list addresses of %s: %w", name, err)
	}
	var firstErr error
	for i := range addrs {
		if err := netlink.AddrDel(link, &addrs[i]); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to delete %s from %s: %w", addrs[i].IPNet, name, err)
		}
	}
	return firstErr
}

func (m *NetlinkManager) HasAddr(name, cidr string) (bool, error) {
	link, err := linkByName(name)
	if err != nil {
		return false, err
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return false, fmt.Errorf("failed to list addresses of %s: %w", name, err)
	}
	for _, a := range addrs {
		if a.IPNet != nil && a.IPNet.String() == cidr {
			return true, nil
		}
	}
	return false, nil
}

func (m *NetlinkManager) ReplaceAddr(name, cidr string) error {
	link, err := linkByName(name)
	if err != nil {
		return err
	}
	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", cidr, err)
	}
	if err := netlink.AddrReplace(link, addr); err != nil {
		return fmt.Errorf("failed to set %s on %s: %w", cidr, name, err)
	}
	return nil
}

func (m *NetlinkManager) IPv4Addrs(name string) ([]string, error) {
	link, err := linkByName(name)
	if err != nil {
		return nil, err
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses of %s: %w", name, err)
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.IP.String())
	}
	return out, nil
}

func isDefaultRoute(r netlink.Route) bool {
	if r.Dst == nil {
		return true
	}
	ones, _ := r.Dst.Mask.Size()
	return ones == 0 && r.Dst.IP.IsUnspecified()
}

// DefaultGateway returns the gateway of the first IPv4 default route bound to
// the link, or "" when there is none.
func (m *NetlinkManager) DefaultGateway(name string) (string, error) {
	link, err := linkByName(name)
	if err != nil {
		return "", err
	}
	routes, err := netlink.RouteList(link, netlink.FAMILY_V4)
	if err != nil {
		return "", fmt.Errorf("failed to list routes of %s: %w", name, err)
	}
	for _, r := range routes {
		if isDefaultRoute(r) && r.Gw != nil {
			return r.Gw.String(), nil
		}
	}
	return "", nil
}

func defaultRoute(gateway, name string) (*netlink.Route, error) {
	link, err := linkByName(name)
	if err != nil {
		return nil, err
	}
	gw := net.ParseIP(gateway)
	if gw == nil {
		return nil, fmt.Errorf("invalid gateway %q", gateway)
	}
	return &netlink.Route{LinkIndex: link.Attrs().Index, Gw: gw}, nil
}

func (m *NetlinkManager) ReplaceDefaultRoute(gateway, name string) error {
	route, err := defaultRoute(gateway, name)
	if err != nil {
		return err
	}
	if err := netlink.RouteReplace(route); err != nil {
		return fmt.Errorf("failed to replace default route via %s dev %s: %w", gateway, name, err)
	}
	return nil
}

func (m *NetlinkManager) DeleteDefaultRoute(gateway, name string) error {
	route, err := defaultRoute(gateway, name)
	if err != nil {
		return err
	}
	if err := netlink.RouteDel(route); err != nil {
		return fmt.Errorf("failed to delete default route via %s dev %s: %w", gateway, name, err)
	}
	return nil
}
