package scan

import "time"

// Prober reports whether a TCP connection to an endpoint can be established within
// the timeout. Implementations must be safe for concurrent use.
type Prober interface {
	Probe(ep Endpoint, timeout time.Duration) bool
}

type ProberFunc func(ep Endpoint, timeout time.Duration) bool

func (f ProberFunc) Probe(ep Endpoint, timeout time.Duration) bool {
	return f(ep, timeout)
}
