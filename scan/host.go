package scan

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Endpoint is a single IPv4 address and TCP port pair.
type Endpoint struct {
	Host netip.Addr
	Port uint16
}

func NewEndpoint(host netip.Addr, port uint16) Endpoint {
	return Endpoint{
		Host: host,
		Port: port,
	}
}

func (e Endpoint) String() string {
	return netip.AddrPortFrom(e.Host, e.Port).String()
}

type ProbeResult struct {
	Endpoint  Endpoint
	Reachable bool
}

// Prefix holds the first three octets of an IPv4 /24 block.
type Prefix [3]byte

// ParsePrefix accepts a dotted three-octet prefix such as "192.168.1". Surrounding
// whitespace and a single trailing separator are stripped.
func ParsePrefix(input string) (Prefix, error) {

	var prefix Prefix

	s := strings.TrimSpace(input)
	s = strings.TrimSuffix(s, ".")

	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return prefix, fmt.Errorf("prefix '%s' must have three octets", input)
	}

	for i, part := range parts {
		octet, err := parseOctet(part)
		if err != nil {
			return prefix, fmt.Errorf("prefix '%s': %w", input, err)
		}
		prefix[i] = octet
	}

	return prefix, nil
}

func (p Prefix) String() string {
	return fmt.Sprintf("%d.%d.%d", p[0], p[1], p[2])
}

func (p Prefix) Host(n byte) netip.Addr {
	return netip.AddrFrom4([4]byte{p[0], p[1], p[2], n})
}

func (p Prefix) Network() netip.Prefix {
	return netip.PrefixFrom(p.Host(0), 24)
}

// Base holds the first two octets shared by every prefix of a subnet survey.
type Base [2]byte

var DefaultBase = Base{192, 168}

func ParseBase(input string) (Base, error) {

	var base Base

	parts := strings.Split(strings.TrimSuffix(strings.TrimSpace(input), "."), ".")
	if len(parts) != 2 {
		return base, fmt.Errorf("base network '%s' must have two octets", input)
	}

	for i, part := range parts {
		octet, err := parseOctet(part)
		if err != nil {
			return base, fmt.Errorf("base network '%s': %w", input, err)
		}
		base[i] = octet
	}

	return base, nil
}

func (b Base) String() string {
	return fmt.Sprintf("%d.%d", b[0], b[1])
}

func (b Base) Prefix(third byte) Prefix {
	return Prefix{b[0], b[1], third}
}

func parseOctet(s string) (byte, error) {
	if s == "" {
		return 0, fmt.Errorf("empty octet")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid octet '%s'", s)
	}
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("octet %d out of range", n)
	}
	return byte(n), nil
}
