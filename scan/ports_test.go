package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePorts(t *testing.T) {
	ports, err := ParsePorts("22, 80,8080-8082")
	require.NoError(t, err)
	assert.Equal(t, []int{22, 80, 8080, 8081, 8082}, ports)

	for _, bad := range []string{"", "http", "90-80", "1-2-3", "0", "70000", "80-x"} {
		_, err := ParsePorts(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseHosts(t *testing.T) {
	hosts, err := ParseHosts("1-50")
	require.NoError(t, err)
	assert.Equal(t, DefaultSampleHosts, hosts)

	_, err = ParseHosts("0-10")
	assert.Error(t, err)

	_, err = ParseHosts("255")
	assert.Error(t, err)
}

func TestDescribePort(t *testing.T) {
	assert.Equal(t, "http", DescribePort(80))
	assert.Equal(t, "http-alt", DescribePort(8080))
	assert.Equal(t, "", DescribePort(1))
}
