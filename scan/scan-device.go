package scan

import (
	"net"
	"net/netip"

	"github.com/google/gopacket/macs"
	"github.com/mostlygeek/arp"
)

// DeviceResolver returns the hardware address and manufacturer of a host, or empty
// strings when they are unknown.
type DeviceResolver interface {
	Resolve(addr netip.Addr) (mac string, manufacturer string)
}

// ARPResolver reads the operating system's ARP cache. It never sends packets, so
// only hosts the kernel has already talked to (for example by a successful probe)
// can be resolved.
type ARPResolver struct{}

func (ARPResolver) Resolve(addr netip.Addr) (string, string) {

	macStr := arp.Search(addr.String())
	if macStr == "" || macStr == "00:00:00:00:00:00" {
		return "", ""
	}

	mac, err := net.ParseMAC(macStr)
	if err != nil {
		return "", ""
	}

	return mac.String(), LookupManufacturer(mac)
}

// LookupManufacturer maps the OUI of mac to a vendor name.
func LookupManufacturer(mac net.HardwareAddr) string {
	if len(mac) < 3 {
		return ""
	}
	prefix := [3]byte{
		mac[0],
		mac[1],
		mac[2],
	}
	return macs.ValidMACPrefixMap[prefix]
}
