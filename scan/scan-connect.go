package scan

import (
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultTimeout = time.Second

type ConnectProber struct {
	log logrus.FieldLogger
}

func NewConnectProber(log logrus.FieldLogger) *ConnectProber {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ConnectProber{
		log: log,
	}
}

// Probe attempts a TCP handshake with ep. Refusals, unreachable networks, timeouts
// and local resource exhaustion all count as unreachable.
func (p *ConnectProber) Probe(ep Endpoint, timeout time.Duration) bool {

	if !ep.Host.Is4() {
		return false
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	conn, err := net.DialTimeout("tcp", ep.String(), timeout)
	if err != nil {
		p.log.WithField("endpoint", ep.String()).Debugf("Probe failed: %s", err)
		return false
	}
	_ = conn.Close()
	return true
}

// ProbeAll probes each endpoint in turn.
func ProbeAll(p Prober, endpoints []Endpoint, timeout time.Duration) []ProbeResult {
	results := make([]ProbeResult, 0, len(endpoints))
	for _, ep := range endpoints {
		results = append(results, ProbeResult{
			Endpoint:  ep,
			Reachable: p.Probe(ep, timeout),
		})
	}
	return results
}
