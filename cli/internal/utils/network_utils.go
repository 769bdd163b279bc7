package utils

import (
	"net"
	"strings"
)

// cgnat is 100.64.0.0/10, used by carrier NAT and by overlay VPNs such as
// WARP and Tailscale.
var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

var tunnelMarkers = []string{"tun", "tap", "wg", "ppp", "warp"}

// NetInterface is the part of net.Interface the relay heuristic looks at.
type NetInterface struct {
	Name  string
	Flags net.Flags
	Addrs []net.IP
}

// ShouldForceRelay reports whether this host looks like it sits behind a
// VPN tunnel or CGNAT, where direct candidates rarely connect.
func ShouldForceRelay() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	list := make([]NetInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		ni := NetInterface{Name: iface.Name, Flags: iface.Flags}
		if addrs, err := iface.Addrs(); err == nil {
			for _, addr := range addrs {
				switch v := addr.(type) {
				case *net.IPNet:
					ni.Addrs = append(ni.Addrs, v.IP)
				case *net.IPAddr:
					ni.Addrs = append(ni.Addrs, v.IP)
				}
			}
		}
		list = append(list, ni)
	}
	return relayHint(list)
}

func relayHint(ifaces []NetInterface) bool {
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		name := strings.ToLower(iface.Name)
		for _, marker := range tunnelMarkers {
			if strings.Contains(name, marker) {
				return true
			}
		}

		for _, ip := range iface.Addrs {
			if cgnat.Contains(ip) {
				return true
			}
		}
	}
	return false
}
