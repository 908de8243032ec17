package scan

import (
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket/macs"
	"github.com/stretchr/testify/assert"
)

func TestLookupManufacturer(t *testing.T) {
	for prefix, vendor := range macs.ValidMACPrefixMap {
		mac := net.HardwareAddr{prefix[0], prefix[1], prefix[2], 0x01, 0x02, 0x03}
		assert.Equal(t, vendor, LookupManufacturer(mac))
		break
	}

	assert.Empty(t, LookupManufacturer(net.HardwareAddr{0x01}))
}

func TestARPResolverUnknownHost(t *testing.T) {
	mac, manufacturer := ARPResolver{}.Resolve(netip.MustParseAddr("203.0.113.77"))
	assert.Empty(t, mac)
	assert.Empty(t, manufacturer)
}
