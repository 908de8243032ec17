package scan

import (
	"io"
	"net/netip"
)

// TargetIterator walks an inclusive range of IPv4 addresses.
type TargetIterator struct {
	next netip.Addr
	last netip.Addr
}

// NewTargetIterator iterates every address in network, including the network and
// broadcast addresses.
func NewTargetIterator(network netip.Prefix) *TargetIterator {

	network = network.Masked()
	first := network.Addr()

	last := first.As4()
	hostBits := 32 - network.Bits()
	for i := 3; i >= 0 && hostBits > 0; i-- {
		bits := hostBits
		if bits > 8 {
			bits = 8
		}
		last[i] |= byte(1<<bits - 1)
		hostBits -= bits
	}

	return &TargetIterator{
		next: first,
		last: netip.AddrFrom4(last),
	}
}

// NewHostIterator iterates the usable host addresses of a /24: .1 through .254.
func NewHostIterator(prefix Prefix) *TargetIterator {
	ti := NewTargetIterator(prefix.Network())
	ti.next = prefix.Host(1)
	ti.last = prefix.Host(254)
	return ti
}

func (ti *TargetIterator) Peek() (netip.Addr, error) {
	if !ti.next.IsValid() || ti.next.Compare(ti.last) > 0 {
		return netip.Addr{}, io.EOF
	}
	return ti.next, nil
}

func (ti *TargetIterator) Next() (netip.Addr, error) {
	ip, err := ti.Peek()
	if err != nil {
		return ip, err
	}
	ti.next = ip.Next()
	return ip, nil
}

// Len returns the number of addresses not yet returned by Next.
func (ti *TargetIterator) Len() int {
	if _, err := ti.Peek(); err != nil {
		return 0
	}
	a, b := ti.next.As4(), ti.last.As4()
	from := uint32(a[0])<<24 | uint32(a[1])<<16 | uint32(a[2])<<8 | uint32(a[3])
	to := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return int(to-from) + 1
}
