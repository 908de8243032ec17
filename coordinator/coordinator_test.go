package coordinator

import (
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/liamg/netradar/metrics"
	"github.com/liamg/netradar/scan"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reachableOnly(addrPorts ...string) scan.Prober {
	reachable := map[scan.Endpoint]bool{}
	for _, s := range addrPorts {
		ap := netip.MustParseAddrPort(s)
		reachable[scan.NewEndpoint(ap.Addr(), ap.Port())] = true
	}
	return scan.ProberFunc(func(ep scan.Endpoint, _ time.Duration) bool {
		return reachable[ep]
	})
}

// gatedProber blocks every probe until release is called.
type gatedProber struct {
	gate    chan struct{}
	once    sync.Once
	started chan struct{}
	inner   scan.Prober
}

func newGatedProber(inner scan.Prober) *gatedProber {
	return &gatedProber{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1024),
		inner:   inner,
	}
}

func (p *gatedProber) Probe(ep scan.Endpoint, timeout time.Duration) bool {
	select {
	case p.started <- struct{}{}:
	default:
	}
	<-p.gate
	return p.inner.Probe(ep, timeout)
}

func (p *gatedProber) release() {
	p.once.Do(func() { close(p.gate) })
}

func newTestCoordinator(t *testing.T, prober scan.Prober) *Coordinator {
	t.Helper()
	logger, _ := test.NewNullLogger()
	c := New(prober, DefaultConfig(), logger, nil)
	t.Cleanup(func() {
		if p, ok := prober.(*gatedProber); ok {
			p.release()
		}
		go func() {
			for range c.Events() {
			}
		}()
		c.Close()
	})
	return c
}

// collect drains events until the completion event of job arrives.
func collect(t *testing.T, c *Coordinator, job *Job) []Event {
	t.Helper()

	var events []Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if ev.JobID != job.ID() {
				continue
			}
			events = append(events, ev)
			if ev.Type == EventCompleted {
				return events
			}
		case <-timeout:
			t.Fatalf("timed out waiting for job %s to complete", job.ID())
			return nil
		}
	}
}

func ofType(events []Event, eventType EventType) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func TestSubnetSurveyEndToEnd(t *testing.T) {
	c := newTestCoordinator(t, reachableOnly("192.168.2.30:80"))

	job, err := c.StartSubnetSurvey("0", "4")
	require.NoError(t, err)

	events := collect(t, c, job)

	findings := ofType(events, EventFinding)
	require.Len(t, findings, 1)
	assert.Equal(t, FindingEvent{
		Kind:       KindSegment,
		Prefix:     "192.168.2",
		SampleHost: "192.168.2.30",
		Port:       80,
	}, *findings[0].Finding)

	completed := ofType(events, EventCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, CompletionEvent{TotalFound: 1, Cancelled: false}, *completed[0].Completion)

	job.Wait()
	assert.Equal(t, StatusCompleted, job.Status())
	assert.Equal(t, 1, job.Found())
}

func TestSubnetSurveyEventOrdering(t *testing.T) {
	c := newTestCoordinator(t, reachableOnly("192.168.1.1:80", "192.168.3.2:8080"))

	job, err := c.StartSubnetSurvey("0", "3")
	require.NoError(t, err)

	var trace []string
	for _, ev := range collect(t, c, job) {
		switch ev.Type {
		case EventProgress:
			trace = append(trace, ev.Progress.Message)
		case EventFinding:
			trace = append(trace, "found "+ev.Finding.Prefix)
		case EventCompleted:
			trace = append(trace, "done")
		}
	}

	assert.Equal(t, []string{
		"Checking 192.168.0.x (1/4)",
		"Checking 192.168.1.x (2/4)",
		"found 192.168.1",
		"Checking 192.168.2.x (3/4)",
		"Checking 192.168.3.x (4/4)",
		"found 192.168.3",
		"done",
	}, trace)
}

func TestHostSurveyReportsSetOfHosts(t *testing.T) {
	c := newTestCoordinator(t, reachableOnly("192.168.1.5:80", "192.168.1.17:80", "192.168.1.200:80"))

	job, err := c.StartHostSurvey("192.168.1.")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1-254:80", job.Target())

	events := collect(t, c, job)

	var addresses []string
	for _, ev := range ofType(events, EventFinding) {
		assert.Equal(t, KindHost, ev.Finding.Kind)
		addresses = append(addresses, ev.Finding.Address)
	}
	assert.ElementsMatch(t, []string{"192.168.1.5", "192.168.1.17", "192.168.1.200"}, addresses)

	// a single progress notification, not one per host
	progress := ofType(events, EventProgress)
	require.Len(t, progress, 1)
	assert.Equal(t, "Hunting live hosts on 192.168.1.1-254 port 80 with 100 workers", progress[0].Progress.Message)

	completed := ofType(events, EventCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, 3, completed[0].Completion.TotalFound)
}

func TestHostSurveyOnPort(t *testing.T) {
	c := newTestCoordinator(t, reachableOnly("10.0.0.9:8080", "10.0.0.10:80"))

	job, err := c.StartHostSurveyOnPort("10.0.0", 8080)
	require.NoError(t, err)

	findings := ofType(collect(t, c, job), EventFinding)
	require.Len(t, findings, 1)
	assert.Equal(t, "10.0.0.9", findings[0].Finding.Address)
	assert.Equal(t, uint16(8080), findings[0].Finding.Port)
}

func TestSecondStartIsRejectedWhileRunning(t *testing.T) {
	prober := newGatedProber(reachableOnly("192.168.1.5:80"))
	c := newTestCoordinator(t, prober)

	first, err := c.StartHostSurvey("192.168.1")
	require.NoError(t, err)
	<-prober.started

	second, err := c.StartHostSurvey("192.168.1")
	assert.Nil(t, second)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	assert.Equal(t, StatusRunning, c.Status()[KindHost].Status)
	assert.Equal(t, first.ID(), c.Status()[KindHost].Job.ID)

	prober.release()
	events := collect(t, c, first)

	findings := ofType(events, EventFinding)
	require.Len(t, findings, 1)
	assert.Equal(t, "192.168.1.5", findings[0].Finding.Address)
	assert.Equal(t, 1, ofType(events, EventCompleted)[0].Completion.TotalFound)
}

func TestSurveyKindsRunIndependently(t *testing.T) {
	prober := newGatedProber(reachableOnly())
	c := newTestCoordinator(t, prober)

	_, err := c.StartHostSurvey("192.168.1")
	require.NoError(t, err)

	_, err = c.StartSubnetSurvey("0", "1")
	require.NoError(t, err)

	status := c.Status()
	assert.Equal(t, StatusRunning, status[KindHost].Status)
	assert.Equal(t, StatusRunning, status[KindSegment].Status)
}

func TestSlotIsIdleWhenCompletionIsDelivered(t *testing.T) {
	c := newTestCoordinator(t, reachableOnly())

	job, err := c.StartSubnetSurvey("0", "0")
	require.NoError(t, err)
	collect(t, c, job)

	assert.Equal(t, StatusIdle, c.Status()[KindSegment].Status)

	next, err := c.StartSubnetSurvey("1", "1")
	require.NoError(t, err)
	assert.NotEqual(t, job.ID(), next.ID())
	collect(t, c, next)
}

func TestValidationRejectsBeforeStarting(t *testing.T) {
	c := newTestCoordinator(t, reachableOnly())

	for _, r := range [][2]string{{"5", "2"}, {"x", "2"}, {"0", ""}, {"0", "256"}, {"-1", "3"}} {
		job, err := c.StartSubnetSurvey(r[0], r[1])
		assert.Nil(t, job)
		assert.ErrorIs(t, err, ErrInvalidRange, "%v", r)
		assert.True(t, IsValidation(err))
	}

	for _, prefix := range []string{"", "192.168", "192.168.1.1", "a.b.c", "192.168.300"} {
		job, err := c.StartHostSurvey(prefix)
		assert.Nil(t, job)
		assert.ErrorIs(t, err, ErrInvalidPrefix, prefix)
	}

	_, err := c.StartHostSurveyOnPort("192.168.1", 0)
	assert.ErrorIs(t, err, ErrInvalidPort)

	assert.Equal(t, StatusIdle, c.Status()[KindSegment].Status)
	assert.Equal(t, StatusIdle, c.Status()[KindHost].Status)
	assert.Empty(t, c.Events())
}

func TestCancelRunningSurvey(t *testing.T) {
	prober := newGatedProber(reachableOnly())
	c := newTestCoordinator(t, prober)

	job, err := c.StartSubnetSurvey("0", "200")
	require.NoError(t, err)
	<-prober.started

	require.NoError(t, c.Cancel(KindSegment))
	prober.release()

	completed := ofType(collect(t, c, job), EventCompleted)
	require.Len(t, completed, 1)
	assert.True(t, completed[0].Completion.Cancelled)
	assert.Equal(t, StatusCancelled, job.Status())

	assert.ErrorIs(t, c.Cancel(KindSegment), ErrNotRunning)
}

func TestCloseStopsJobsAndClosesEvents(t *testing.T) {
	prober := newGatedProber(reachableOnly())
	logger, _ := test.NewNullLogger()
	c := New(prober, DefaultConfig(), logger, nil)

	job, err := c.StartHostSurvey("192.168.1")
	require.NoError(t, err)
	<-prober.started

	var events []Event
	drained := make(chan struct{})
	go func() {
		for ev := range c.Events() {
			events = append(events, ev)
		}
		close(drained)
	}()

	go prober.release()
	c.Close()
	<-drained

	assert.Equal(t, StatusCancelled, job.Status())
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventCompleted, last.Type)
	assert.True(t, last.Completion.Cancelled)

	_, err = c.StartHostSurvey("192.168.1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMetricsAreRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	// the first sample pair fails and the second answers
	c := New(reachableOnly("192.168.0.1:8080"), DefaultConfig(), logrus.New(), m)
	defer func() {
		go func() {
			for range c.Events() {
			}
		}()
		c.Close()
	}()

	job, err := c.StartSubnetSurvey("0", "0")
	require.NoError(t, err)
	completed := ofType(collect(t, c, job), EventCompleted)
	assert.Equal(t, 1, completed[0].Completion.TotalFound)

	expected := `
# HELP netradar_probe_total TCP connect probes by outcome
# TYPE netradar_probe_total counter
netradar_probe_total{outcome="reachable"} 1
netradar_probe_total{outcome="unreachable"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "netradar_probe_total"))

	series, err := testutil.GatherAndCount(reg, "netradar_probe_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)

	series, err = testutil.GatherAndCount(reg, "netradar_findings_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}
