// Package coordinator runs surveys in the background, enforces one running job per
// survey kind and turns survey output into a single stream of events.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/liamg/netradar/metrics"
	"github.com/liamg/netradar/scan"
	"github.com/sirupsen/logrus"
)

const DefaultEventBuffer = 64

type Config struct {
	Subnet      scan.SubnetSurveyConfig
	Host        scan.HostSurveyConfig
	HostPort    int
	EventBuffer int
}

func DefaultConfig() Config {
	return Config{
		Subnet:      scan.DefaultSubnetSurveyConfig(),
		Host:        scan.DefaultHostSurveyConfig(),
		HostPort:    scan.DefaultHostPort,
		EventBuffer: DefaultEventBuffer,
	}
}

// Coordinator owns the survey jobs. Consumers must drain Events until it is closed;
// jobs block on delivery otherwise.
type Coordinator struct {
	subnet   *scan.SubnetSurvey
	hosts    *scan.HostSurvey
	hostPort int
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	validate *validator.Validate

	events chan Event

	mu        sync.Mutex
	running   map[Kind]*Job
	closed    bool
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New builds a coordinator probing through prober. m may be nil.
func New(prober scan.Prober, cfg Config, log logrus.FieldLogger, m *metrics.Metrics) *Coordinator {

	if log == nil {
		log = logrus.StandardLogger()
	}
	if m != nil {
		prober = metrics.InstrumentProber(prober, m)
	}
	if cfg.HostPort <= 0 {
		cfg.HostPort = scan.DefaultHostPort
	}
	if cfg.EventBuffer < 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}

	return &Coordinator{
		subnet:   scan.NewSubnetSurvey(prober, cfg.Subnet, log),
		hosts:    scan.NewHostSurvey(prober, cfg.Host, log),
		hostPort: cfg.HostPort,
		metrics:  m,
		log:      log,
		validate: newValidator(),
		events:   make(chan Event, cfg.EventBuffer),
		running:  make(map[Kind]*Job),
	}
}

func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// StartSubnetSurvey validates raw range input and starts a segment survey.
func (c *Coordinator) StartSubnetSurvey(start string, end string) (*Job, error) {
	spec, err := ParseSegmentRange(start, end)
	if err != nil {
		return nil, err
	}
	return c.StartSegments(spec)
}

// StartHostSurvey starts a host survey of prefix on the configured default port.
func (c *Coordinator) StartHostSurvey(prefix string) (*Job, error) {
	return c.StartHosts(HostSpec{
		Prefix: prefix,
		Port:   c.hostPort,
	})
}

func (c *Coordinator) StartHostSurveyOnPort(prefix string, port int) (*Job, error) {
	return c.StartHosts(HostSpec{
		Prefix: prefix,
		Port:   port,
	})
}

func (c *Coordinator) StartSegments(spec SegmentSpec) (*Job, error) {

	if err := c.validateSegments(spec); err != nil {
		return nil, err
	}

	base := c.subnet.Base()
	target := fmt.Sprintf("%s.%d-%d", base, spec.Start, spec.End)

	return c.start(KindSegment, target, func(ctx context.Context, job *Job) (int, error) {
		return c.subnet.Survey(ctx, spec.Start, spec.End, &segmentObserver{c: c, job: job})
	})
}

func (c *Coordinator) StartHosts(spec HostSpec) (*Job, error) {

	prefix, err := c.validateHosts(spec)
	if err != nil {
		return nil, err
	}

	port := uint16(spec.Port)
	target := fmt.Sprintf("%s.1-254:%d", prefix, port)

	return c.start(KindHost, target, func(ctx context.Context, job *Job) (int, error) {
		c.emit(job, EventProgress, func(ev *Event) {
			ev.Progress = &ProgressEvent{
				Message: fmt.Sprintf("Hunting live hosts on %s.1-254 port %d with %d workers", prefix, port, c.hosts.Workers()),
				Total:   254,
			}
		})
		return c.hosts.Survey(ctx, prefix, port, func(finding scan.HostFinding) {
			c.emitFinding(job, FindingEvent{
				Kind:         KindHost,
				Address:      finding.Address.String(),
				Port:         finding.Port,
				MAC:          finding.MAC,
				Manufacturer: finding.Manufacturer,
			})
		})
	})
}

// Cancel stops the running job of kind, if there is one.
func (c *Coordinator) Cancel(kind Kind) error {
	c.mu.Lock()
	job := c.running[kind]
	c.mu.Unlock()

	if job == nil {
		return ErrNotRunning
	}
	job.Cancel()
	return nil
}

type SlotStatus struct {
	Status Status       `json:"status"`
	Job    *JobSnapshot `json:"job,omitempty"`
}

// Status reports, per survey kind, whether a job is running.
func (c *Coordinator) Status() map[Kind]SlotStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := map[Kind]SlotStatus{}
	for _, kind := range []Kind{KindSegment, KindHost} {
		slot := SlotStatus{Status: StatusIdle}
		if job := c.running[kind]; job != nil {
			snapshot := job.Snapshot()
			slot.Status = StatusRunning
			slot.Job = &snapshot
		}
		status[kind] = slot
	}
	return status
}

// Close cancels running jobs, waits for their completion events and closes the
// event channel.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		for _, job := range c.running {
			job.Cancel()
		}
		c.mu.Unlock()

		c.wg.Wait()
		close(c.events)
	})
}

type surveyFunc func(ctx context.Context, job *Job) (int, error)

func (c *Coordinator) start(kind Kind, target string, run surveyFunc) (*Job, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	if c.running[kind] != nil {
		return nil, ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := newJob(kind, target, cancel)
	job.transition(StatusIdle, StatusRunning)
	c.running[kind] = job

	c.wg.Add(1)
	go c.run(ctx, job, run)

	return job, nil
}

func (c *Coordinator) run(ctx context.Context, job *Job, run surveyFunc) {

	defer c.wg.Done()
	defer job.cancel()

	log := c.log.WithFields(logrus.Fields{
		"job_id": job.id,
		"survey": job.kind,
		"target": job.target,
	})
	log.Info("Survey started")

	if c.metrics != nil {
		c.metrics.SurveyStarted(string(job.kind))
	}

	started := time.Now()
	found, err := run(ctx, job)

	status := StatusCompleted
	if err != nil {
		status = StatusCancelled
		if !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("Survey stopped early")
		}
	}
	job.transition(StatusRunning, status)

	if c.metrics != nil {
		c.metrics.SurveyFinished(string(job.kind), string(status), time.Since(started))
	}

	log.WithField("found", found).Infof("Survey %s in %s", status, time.Since(started).Round(time.Millisecond))

	c.mu.Lock()
	if c.running[job.kind] == job {
		delete(c.running, job.kind)
	}
	c.mu.Unlock()

	c.emit(job, EventCompleted, func(ev *Event) {
		ev.Completion = &CompletionEvent{
			TotalFound: found,
			Cancelled:  status == StatusCancelled,
		}
	})
	close(job.done)
}

func (c *Coordinator) emit(job *Job, eventType EventType, fill func(*Event)) {
	ev := Event{
		Type:   eventType,
		JobID:  job.id,
		Survey: job.kind,
		Time:   time.Now(),
	}
	fill(&ev)
	c.events <- ev
}

func (c *Coordinator) emitFinding(job *Job, finding FindingEvent) {
	if job.Status() != StatusRunning {
		return
	}
	job.recordFinding()
	if c.metrics != nil {
		c.metrics.ObserveFinding(string(job.kind))
	}
	c.emit(job, EventFinding, func(ev *Event) {
		ev.Finding = &finding
	})
}

type segmentObserver struct {
	c   *Coordinator
	job *Job
}

func (o *segmentObserver) OnPrefix(prefix scan.Prefix, index int, total int) {
	o.c.emit(o.job, EventProgress, func(ev *Event) {
		ev.Progress = &ProgressEvent{
			Message: fmt.Sprintf("Checking %s.x (%d/%d)", prefix, index, total),
			Done:    index - 1,
			Total:   total,
		}
	})
}

func (o *segmentObserver) OnSegment(finding scan.SegmentFinding) {
	o.c.emitFinding(o.job, FindingEvent{
		Kind:       KindSegment,
		Prefix:     finding.Prefix,
		SampleHost: finding.SampleHost.String(),
		Port:       finding.Port,
	})
}
