package networking

import (
	"fmt"
	"net"
	"net/netip"
	"sort"

	"github.com/vishvananda/netlink"
)

// Interface is a network link as seen by netlink.
type Interface struct {
	netlink.Link
}

// GetInterface looks up a link by name.
func GetInterface(name string) (*Interface, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find interface %s: %w", name, err)
	}
	return &Interface{link}, nil
}

// GetInterfaceList returns every link ordered by index.
func GetInterfaceList() ([]Interface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	interfaces := make([]Interface, 0, len(links))
	for _, link := range links {
		interfaces = append(interfaces, Interface{link})
	}
	sort.Slice(interfaces, func(i, j int) bool {
		return interfaces[i].Index() < interfaces[j].Index()
	})
	return interfaces, nil
}

// Name returns the link name.
func (iface *Interface) Name() string {
	return iface.Attrs().Name
}

// Index returns the link index.
func (iface *Interface) Index() int {
	return iface.Attrs().Index
}

func (iface *Interface) IsUp() bool {
	return iface.Attrs().Flags&net.FlagUp != 0
}

func (iface *Interface) IsLoopback() bool {
	return iface.Attrs().Flags&net.FlagLoopback != 0
}

// Addrs returns the addresses assigned to the interface.
func (iface *Interface) Addrs() ([]netip.Addr, error) {
	addrs, err := netlink.AddrList(iface.Link, netlink.FAMILY_ALL)
	if err != nil {
		return nil, err
	}
	var ips []netip.Addr
	for _, addr := range addrs {
		if ip, ok := netip.AddrFromSlice(addr.IP); ok {
			ips = append(ips, ip.Unmap())
		}
	}
	return ips, nil
}

// LocalAddresses returns the non-loopback addresses of the named interfaces.
func LocalAddresses(names []string) ([]netip.Addr, error) {
	var result []netip.Addr
	for _, name := range names {
		iface, err := GetInterface(name)
		if err != nil {
			return nil, err
		}
		addrs, err := iface.Addrs()
		if err != nil {
			return nil, fmt.Errorf("failed to list addresses of %s: %w", name, err)
		}
		for _, addr := range addrs {
			if addr.IsLoopback() {
				continue
			}
			result = append(result, addr)
		}
	}
	return result, nil
}
