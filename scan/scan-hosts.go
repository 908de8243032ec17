package scan

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultHostPort    = 80
	DefaultHostWorkers = 100
)

type HostSurveyConfig struct {
	Timeout time.Duration
	Workers int
	// Resolver, if set, annotates each finding with device details.
	Resolver DeviceResolver
}

func DefaultHostSurveyConfig() HostSurveyConfig {
	return HostSurveyConfig{
		Timeout: DefaultTimeout,
		Workers: DefaultHostWorkers,
	}
}

// HostSurvey probes every host address of a /24 on a single port using a fixed
// pool of workers.
type HostSurvey struct {
	prober   Prober
	timeout  time.Duration
	workers  int
	resolver DeviceResolver
	log      logrus.FieldLogger
}

func NewHostSurvey(prober Prober, cfg HostSurveyConfig, log logrus.FieldLogger) *HostSurvey {

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultHostWorkers
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &HostSurvey{
		prober:   prober,
		timeout:  cfg.Timeout,
		workers:  cfg.Workers,
		resolver: cfg.Resolver,
		log:      log.WithField("survey", "host"),
	}
}

func (s *HostSurvey) Workers() int {
	return s.workers
}

// Survey probes prefix.1 through prefix.254 on port. onFinding is called for each
// reachable host in completion order, always from the calling goroutine. After ctx
// is cancelled no further probes are started; probes already running are allowed
// to finish and their findings are still reported.
func (s *HostSurvey) Survey(ctx context.Context, prefix Prefix, port uint16, onFinding func(HostFinding)) (int, error) {

	jobChan := make(chan Endpoint, s.workers)
	resultChan := make(chan HostFinding, s.workers)
	wg := &sync.WaitGroup{}

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ep := range jobChan {

				select {
				case <-ctx.Done():
					continue
				default:
				}

				if !s.prober.Probe(ep, s.timeout) {
					continue
				}

				resultChan <- s.describe(ep)
			}
		}()
	}

	go func() {
		defer close(jobChan)
		ti := NewHostIterator(prefix)
		s.log.WithField("prefix", prefix.String()).Debugf("Dispatching %d probes on port %d to %d workers", ti.Len(), port, s.workers)
		for {
			if ctx.Err() != nil {
				return
			}
			addr, err := ti.Next()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case jobChan <- NewEndpoint(addr, port):
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	found := 0
	for finding := range resultChan {
		found++
		s.log.WithField("address", finding.Address.String()).Debug("Host reachable")
		onFinding(finding)
	}

	return found, ctx.Err()
}

func (s *HostSurvey) describe(ep Endpoint) HostFinding {
	finding := HostFinding{
		Address: ep.Host,
		Port:    ep.Port,
	}
	if s.resolver != nil {
		finding.MAC, finding.Manufacturer = s.resolver.Resolve(ep.Host)
	}
	return finding
}
