package scan

import (
	"fmt"
	"net/netip"
)

// SegmentFinding reports a /24 with at least one live web port in its sample.
type SegmentFinding struct {
	Prefix     string
	SampleHost netip.Addr
	Port       uint16
}

func (f SegmentFinding) String() string {
	return fmt.Sprintf("Active segment %s.x (sample device %s, %d/tcp %s)", f.Prefix, f.SampleHost, f.Port, DescribePort(int(f.Port)))
}

// HostFinding reports one reachable host of a host survey.
type HostFinding struct {
	Address      netip.Addr
	Port         uint16
	MAC          string
	Manufacturer string
}

// URL renders the finding as a link to the web interface it answered on.
func (f HostFinding) URL() string {
	scheme := "http"
	if f.Port == 443 || f.Port == 8443 {
		scheme = "https"
	}
	if f.Port == 0 || (scheme == "http" && f.Port == 80) || (scheme == "https" && f.Port == 443) {
		return fmt.Sprintf("%s://%s", scheme, f.Address)
	}
	return fmt.Sprintf("%s://%s", scheme, netip.AddrPortFrom(f.Address, f.Port))
}

func (f HostFinding) String() string {

	text := fmt.Sprintf("%s\t%d/tcp open", pad(f.URL(), 28), f.Port)

	if f.MAC != "" {
		text = fmt.Sprintf("%s\t%s", text, f.MAC)
	}

	if f.Manufacturer != "" {
		text = fmt.Sprintf("%s\t%s", text, f.Manufacturer)
	}

	return text
}

func pad(input string, length int) string {
	for len(input) < length {
		input += " "
	}
	return input
}
