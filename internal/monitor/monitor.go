package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"edumonitor/internal/models"
	"edumonitor/internal/registry"
)

const (
	defaultConcurrency = 10
	minInterval        = time.Minute

	networkFailureMessage = "Network Error: Cannot connect to internet (connectivity check failed)."
)

// ErrCheckDeadline is returned by RunWithDeadline when the caller's
// deadline elapses before the run completes.
var ErrCheckDeadline = errors.New("check run exceeded deadline")

// Prober checks one URL.
type Prober interface {
	Probe(ctx context.Context, url string) models.ProbeOutcome
}

// ConnectivityChecker gates a run on basic network reachability.
type ConnectivityChecker interface {
	CheckConnectivity(ctx context.Context) bool
}

// FailureSink receives one line per failure event.
type FailureSink interface {
	Append(message string)
}

// Recorder observes probe and run telemetry.
type Recorder interface {
	ProbeStarted()
	ProbeFinished(models.ProbeOutcome)
	RunFinished(models.Report, time.Duration)
}

// ReportStore keeps the most recent report.
type ReportStore interface {
	Save(models.Report) error
}

// RegistrySource hands out the registry snapshot for a run.
type RegistrySource interface {
	Current() *registry.Registry
}

// Deps wires a Monitor. Registry, Connectivity and Prober are required.
type Deps struct {
	Registry     RegistrySource
	Connectivity ConnectivityChecker
	Prober       Prober
	Sink         FailureSink
	Recorder     Recorder
	Store        ReportStore
	// Concurrency caps simultaneous in-flight probes. Default: 10
	Concurrency int
	// Interval returns the scheduler period; it is read before every wait
	// so settings changes apply to the next cycle.
	Interval func() time.Duration
	Logger   *slog.Logger
}

// Monitor runs checks across the registry and schedules periodic runs.
type Monitor struct {
	deps        Deps
	concurrency int
	logger      *slog.Logger
	runs        singleflight.Group

	mu        sync.Mutex
	active    int
	maxActive int

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a monitor from deps.
func New(deps Deps) *Monitor {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Sink == nil {
		deps.Sink = discardSink{}
	}
	if deps.Recorder == nil {
		deps.Recorder = noopRecorder{}
	}

	return &Monitor{
		deps:        deps,
		concurrency: concurrency,
		logger:      logger,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Endpoints returns the current registry in canonical order.
func (m *Monitor) Endpoints() []models.Endpoint {
	return m.deps.Registry.Current().All()
}

// CheckConnectivity runs the network precondition on its own.
func (m *Monitor) CheckConnectivity(ctx context.Context) bool {
	return m.deps.Connectivity.CheckConnectivity(ctx)
}

// PeakInFlight reports the highest number of simultaneous probes observed
// during the most recent run.
func (m *Monitor) PeakInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive
}

// RunCheck probes every endpoint and blocks until each has an outcome.
// Calls made while a run is in flight share that run's report.
func (m *Monitor) RunCheck(ctx context.Context) models.Report {
	v, _, _ := m.runs.Do("check", func() (any, error) {
		return m.runCheck(ctx), nil
	})
	return v.(models.Report)
}

// RunWithDeadline runs a check but stops waiting after d. The run itself is
// detached from ctx and from the deadline: outstanding probes finish and
// the report is still stored.
func (m *Monitor) RunWithDeadline(ctx context.Context, d time.Duration) (models.Report, error) {
	done := make(chan models.Report, 1)
	go func() {
		done <- m.RunCheck(context.WithoutCancel(ctx))
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case report := <-done:
		return report, nil
	case <-timer.C:
		return models.Report{}, ErrCheckDeadline
	case <-ctx.Done():
		return models.Report{}, ctx.Err()
	}
}

func (m *Monitor) runCheck(ctx context.Context) models.Report {
	started := time.Now()
	report := models.Report{
		CheckedAt: started.UTC(),
		Failures:  []models.ProbeOutcome{},
	}

	if !m.deps.Connectivity.CheckConnectivity(ctx) {
		report.NetworkError = true
		m.deps.Sink.Append(networkFailureMessage)
		m.logger.Warn("connectivity precondition failed, skipping site probes")
		m.finish(report, time.Since(started))
		return report
	}

	endpoints := m.deps.Registry.Current().All()
	report.Checked = len(endpoints)

	for outcome := range m.probeAll(ctx, endpoints) {
		m.deps.Recorder.ProbeFinished(outcome)
		if outcome.Success {
			continue
		}
		report.Failures = append(report.Failures, outcome)
		m.deps.Sink.Append(fmt.Sprintf("Site Fail: %s (%s) - %s", outcome.Name, outcome.URL, outcome.Message()))
		m.logger.Warn("site check failed",
			"name", outcome.Name,
			"url", outcome.URL,
			"category", outcome.Category,
			"error", outcome.RawError,
		)
	}

	m.finish(report, time.Since(started))
	return report
}

// probeAll feeds endpoints to a fixed set of workers and streams outcomes in
// completion order. The channel closes once every endpoint has an outcome.
func (m *Monitor) probeAll(ctx context.Context, endpoints []models.Endpoint) <-chan models.ProbeOutcome {
	m.mu.Lock()
	m.active, m.maxActive = 0, 0
	m.mu.Unlock()

	results := make(chan models.ProbeOutcome, len(endpoints))
	jobs := make(chan models.Endpoint)

	workers := m.concurrency
	if len(endpoints) < workers {
		workers = len(endpoints)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ep := range jobs {
				results <- m.probeOne(ctx, ep)
			}
		}()
	}

	go func() {
		for _, ep := range endpoints {
			jobs <- ep
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	return results
}

func (m *Monitor) probeOne(ctx context.Context, ep models.Endpoint) models.ProbeOutcome {
	m.mu.Lock()
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
	m.mu.Unlock()
	m.deps.Recorder.ProbeStarted()

	outcome := m.deps.Prober.Probe(ctx, ep.URL)

	m.mu.Lock()
	m.active--
	m.mu.Unlock()

	outcome.Name = ep.Name
	outcome.URL = ep.URL
	return outcome
}

func (m *Monitor) finish(report models.Report, elapsed time.Duration) {
	m.deps.Recorder.RunFinished(report, elapsed)
	if m.deps.Store != nil {
		if err := m.deps.Store.Save(report); err != nil {
			m.logger.Error("persist report failed", "error", err)
		}
	}
	m.logger.Info("check complete",
		"network_error", report.NetworkError,
		"checked", report.Checked,
		"failures", len(report.Failures),
		"elapsed", elapsed.Round(time.Millisecond),
	)
}

// Start launches the scheduling loop: one run immediately, then one per interval.
func (m *Monitor) Start() {
	go m.run()
}

// Stop requests loop termination and waits until the current run is done.
func (m *Monitor) Stop() {
	select {
	case <-m.doneCh:
		return
	default:
	}
	close(m.stopCh)
	<-m.doneCh
}

func (m *Monitor) run() {
	defer close(m.doneCh)

	m.RunCheck(context.Background())

	for {
		timer := time.NewTimer(m.interval())
		select {
		case <-timer.C:
			m.RunCheck(context.Background())
		case <-m.stopCh:
			timer.Stop()
			return
		}
	}
}

func (m *Monitor) interval() time.Duration {
	if m.deps.Interval == nil {
		return 10 * time.Minute
	}
	d := m.deps.Interval()
	if d < minInterval {
		d = minInterval
	}
	return d
}

type discardSink struct{}

func (discardSink) Append(string) {}

type noopRecorder struct{}

func (noopRecorder) ProbeStarted()                            {}
func (noopRecorder) ProbeFinished(models.ProbeOutcome)        {}
func (noopRecorder) RunFinished(models.Report, time.Duration) {}
