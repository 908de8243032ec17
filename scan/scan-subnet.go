package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	DefaultSampleHosts = []int{
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25,
		26, 27, 28, 29, 30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47, 48, 49, 50,
	}
	DefaultSamplePorts = []int{80, 8080}
)

// SegmentObserver receives the output of a subnet survey. Calls are made from the
// survey's goroutine, in prefix order.
type SegmentObserver interface {
	// OnPrefix is called before each prefix is evaluated. index is 1-based.
	OnPrefix(prefix Prefix, index int, total int)
	OnSegment(finding SegmentFinding)
}

type SubnetSurveyConfig struct {
	Timeout time.Duration
	Base    Base
	Hosts   []int
	Ports   []int
}

func DefaultSubnetSurveyConfig() SubnetSurveyConfig {
	return SubnetSurveyConfig{
		Timeout: DefaultTimeout,
		Base:    DefaultBase,
		Hosts:   DefaultSampleHosts,
		Ports:   DefaultSamplePorts,
	}
}

// SubnetSurvey decides, prefix by prefix, whether a /24 has anything listening on a
// common web port. Only a sample of each prefix is probed and the first reachable
// pair ends the prefix, so hosts above the sample or services on other ports are
// not seen.
type SubnetSurvey struct {
	prober  Prober
	timeout time.Duration
	base    Base
	hosts   []int
	ports   []int
	log     logrus.FieldLogger
}

func NewSubnetSurvey(prober Prober, cfg SubnetSurveyConfig, log logrus.FieldLogger) *SubnetSurvey {

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if len(cfg.Hosts) == 0 {
		cfg.Hosts = DefaultSampleHosts
	}
	if len(cfg.Ports) == 0 {
		cfg.Ports = DefaultSamplePorts
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &SubnetSurvey{
		prober:  prober,
		timeout: cfg.Timeout,
		base:    cfg.Base,
		hosts:   cfg.Hosts,
		ports:   cfg.Ports,
		log:     log.WithField("survey", "segment"),
	}
}

func (s *SubnetSurvey) Base() Base {
	return s.base
}

// Survey evaluates the prefixes start..end (third octet, inclusive) one after the
// other. Cancellation is observed between prefixes only. The number of active
// segments is returned along with ctx.Err() if the survey stopped early.
func (s *SubnetSurvey) Survey(ctx context.Context, start int, end int, observer SegmentObserver) (int, error) {

	if start < 0 || end > 255 || start > end {
		return 0, fmt.Errorf("invalid prefix range: %d-%d", start, end)
	}

	total := end - start + 1
	found := 0

	for i := 0; i < total; i++ {

		select {
		case <-ctx.Done():
			s.log.Debugf("Survey cancelled after %d of %d prefixes", i, total)
			return found, ctx.Err()
		default:
		}

		prefix := s.base.Prefix(byte(start + i))
		observer.OnPrefix(prefix, i+1, total)

		finding, ok := s.surveyPrefix(prefix)
		if !ok {
			s.log.WithField("prefix", prefix.String()).Debug("Segment inactive")
			continue
		}

		found++
		s.log.WithField("prefix", prefix.String()).Debug(finding.String())
		observer.OnSegment(finding)
	}

	return found, nil
}

func (s *SubnetSurvey) surveyPrefix(prefix Prefix) (SegmentFinding, bool) {
	for _, host := range s.hosts {
		addr := prefix.Host(byte(host))
		for _, port := range s.ports {
			if s.prober.Probe(NewEndpoint(addr, uint16(port)), s.timeout) {
				return SegmentFinding{
					Prefix:     prefix.String(),
					SampleHost: addr,
					Port:       uint16(port),
				}, true
			}
		}
	}
	return SegmentFinding{}, false
}
