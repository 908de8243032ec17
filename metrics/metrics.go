// Package metrics exposes prometheus collectors for probes and surveys.
package metrics

import (
	"time"

	"github.com/liamg/netradar/scan"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "netradar"

type Metrics struct {
	probes         *prometheus.CounterVec
	findings       *prometheus.CounterVec
	surveyDuration *prometheus.HistogramVec
	activeSurveys  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg leaves them
// unregistered, which is convenient for tests that don't scrape.
func New(reg prometheus.Registerer) *Metrics {

	m := &Metrics{
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probe_total",
				Help:      "TCP connect probes by outcome",
			},
			[]string{"outcome"},
		),
		findings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "findings_total",
				Help:      "Findings emitted by survey type",
			},
			[]string{"survey"},
		),
		surveyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "survey_duration_seconds",
				Help:      "Duration of surveys by type and final status",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900},
			},
			[]string{"survey", "status"},
		),
		activeSurveys: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_surveys",
				Help:      "Surveys currently running by type",
			},
			[]string{"survey"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.probes, m.findings, m.surveyDuration, m.activeSurveys)
	}

	return m
}

func (m *Metrics) ObserveProbe(reachable bool) {
	outcome := "unreachable"
	if reachable {
		outcome = "reachable"
	}
	m.probes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFinding(survey string) {
	m.findings.WithLabelValues(survey).Inc()
}

func (m *Metrics) SurveyStarted(survey string) {
	m.activeSurveys.WithLabelValues(survey).Inc()
}

func (m *Metrics) SurveyFinished(survey string, status string, elapsed time.Duration) {
	m.activeSurveys.WithLabelValues(survey).Dec()
	m.surveyDuration.WithLabelValues(survey, status).Observe(elapsed.Seconds())
}

// InstrumentProber counts the outcome of every probe made through p.
func InstrumentProber(p scan.Prober, m *Metrics) scan.Prober {
	return scan.ProberFunc(func(ep scan.Endpoint, timeout time.Duration) bool {
		reachable := p.Probe(ep, timeout)
		m.ObserveProbe(reachable)
		return reachable
	})
}
