// Package metrics exposes probe and run telemetry as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"edumonitor/internal/models"
)

const namespace = "edumonitor"

// Recorder implements monitor.Recorder on top of a Prometheus registerer.
type Recorder struct {
	probesTotal   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	probeAttempts prometheus.Histogram
	inFlight      prometheus.Gauge
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	failingSites  prometheus.Gauge
	lastRun       prometheus.Gauge
}

// NewRecorder registers every collector with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		probesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_total",
				Help:      "Total number of site probes by result and error category.",
			},
			[]string{"result", "category"}, // result: ok, error
		),
		probeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_duration_seconds",
				Help:      "Duration of site probes including retries.",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30},
			},
			[]string{"result"},
		),
		probeAttempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_attempts",
				Help:      "Number of HTTP attempts spent per probe.",
				Buckets:   []float64{1, 2, 3, 4, 5},
			},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "probes_in_flight",
				Help:      "Current number of site probes in flight.",
			},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of check runs by outcome.",
			},
			[]string{"outcome"}, // outcome: ok, failures, network_error
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of complete check runs.",
				Buckets:   []float64{1, 5, 10, 15, 30, 60, 120},
			},
		),
		failingSites: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "failing_sites",
				Help:      "Number of sites that failed in the most recent run.",
			},
		),
		lastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the most recent run started.",
			},
		),
	}
}

func (r *Recorder) ProbeStarted() {
	r.inFlight.Inc()
}

func (r *Recorder) ProbeFinished(outcome models.ProbeOutcome) {
	r.inFlight.Dec()

	result := "ok"
	category := ""
	if !outcome.Success {
		result = "error"
		category = string(outcome.Category)
	}
	r.probesTotal.WithLabelValues(result, category).Inc()
	r.probeDuration.WithLabelValues(result).Observe(float64(outcome.DurationMS) / 1000)
	if outcome.Attempts > 0 {
		r.probeAttempts.Observe(float64(outcome.Attempts))
	}
}

func (r *Recorder) RunFinished(report models.Report, elapsed time.Duration) {
	outcome := "ok"
	switch {
	case report.NetworkError:
		outcome = "network_error"
	case len(report.Failures) > 0:
		outcome = "failures"
	}
	r.runsTotal.WithLabelValues(outcome).Inc()
	r.runDuration.Observe(elapsed.Seconds())
	r.failingSites.Set(float64(len(report.Failures)))
	if !report.CheckedAt.IsZero() {
		r.lastRun.Set(float64(report.CheckedAt.Unix()))
	}
}
