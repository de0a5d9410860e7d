// Package main provides the chatoneverything CLI.
// This file resolves the host's LAN address for URL display and page
// links.
package main

import "net"

// GetPreferredOutboundIP returns the machine's preferred outbound IPv4
// address. Dialing UDP sends no packets; it only asks the OS which
// local interface it would route through. Falls back to an interface
// scan when the machine has no default route (offline LAN party).
func GetPreferredOutboundIP() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return firstPrivateInterfaceIP()
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}

// firstPrivateInterfaceIP scans up interfaces for the first private
// IPv4 address. Returns empty when none is found; callers fall back to
// loopback URLs in that case.
func firstPrivateInterfaceIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipNet.IP.To4()
			if ip != nil && ip.IsPrivate() {
				return ip.String()
			}
		}
	}
	return ""
}
