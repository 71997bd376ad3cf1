// Package testutil holds hand-written fakes shared by package tests.
package testutil

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"edumonitor/internal/models"
	"edumonitor/internal/monitor"
)

var _ monitor.ConnectivityChecker = (*StubConnectivity)(nil)

// StubConnectivity returns a fixed answer and counts calls.
type StubConnectivity struct {
	Up bool

	mu    sync.Mutex
	calls int
}

func (s *StubConnectivity) CheckConnectivity(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.Up
}

// Calls returns the number of checks performed.
func (s *StubConnectivity) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var _ monitor.Prober = (*StubProber)(nil)

// StubProber answers from Results keyed by URL; unknown URLs succeed.
// Delay keeps each probe in flight long enough to observe concurrency.
type StubProber struct {
	Results map[string]models.ProbeOutcome
	Delay   time.Duration

	mu        sync.Mutex
	calls     map[string]int
	inFlight  int
	peak      int
	callTotal int
}

func (s *StubProber) Probe(_ context.Context, url string) models.ProbeOutcome {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[url]++
	s.callTotal++
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()

	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()

	if out, ok := s.Results[url]; ok {
		out.URL = url
		return out
	}
	return models.ProbeOutcome{URL: url, Success: true, Attempts: 1}
}

// Calls returns how often url was probed.
func (s *StubProber) Calls(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

// TotalCalls returns the number of probes across all URLs.
func (s *StubProber) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callTotal
}

// Peak returns the highest number of simultaneous probes seen.
func (s *StubProber) Peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// Failure builds a failed outcome for category.
func Failure(category models.ErrorCategory, raw string) models.ProbeOutcome {
	return models.ProbeOutcome{Success: false, Category: category, RawError: raw, Attempts: 2}
}

var _ monitor.FailureSink = (*MemorySink)(nil)

// MemorySink records appended lines.
type MemorySink struct {
	mu    sync.Mutex
	lines []string
}

func (s *MemorySink) Append(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, message)
}

// Lines returns a copy of the recorded lines.
func (s *MemorySink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// Mentioning counts lines containing substr.
func (s *MemorySink) Mentioning(substr string) int {
	n := 0
	for _, line := range s.Lines() {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

var _ monitor.ReportStore = (*MemoryReportStore)(nil)

// MemoryReportStore keeps saved reports in memory.
type MemoryReportStore struct {
	mu      sync.Mutex
	reports []models.Report
}

func (s *MemoryReportStore) Save(r models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

// Saved returns every report saved so far.
func (s *MemoryReportStore) Saved() []models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Report, len(s.reports))
	copy(out, s.reports)
	return out
}

var _ monitor.HTTPDoer = (*ScriptedDoer)(nil)

// ScriptedDoer answers successive requests from Steps; the last step repeats.
// A step with Err set fails at transport level, otherwise Status is returned.
type ScriptedDoer struct {
	Steps []Step

	mu       sync.Mutex
	requests []*http.Request
}

// Step is one scripted reply.
type Step struct {
	Status int
	Err    error
}

func (d *ScriptedDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	idx := len(d.requests)
	d.requests = append(d.requests, req)
	d.mu.Unlock()

	if idx >= len(d.Steps) {
		idx = len(d.Steps) - 1
	}
	step := d.Steps[idx]
	if step.Err != nil {
		return nil, step.Err
	}
	return &http.Response{
		StatusCode: step.Status,
		Status:     http.StatusText(step.Status),
		Body:       http.NoBody,
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// Requests returns the requests seen so far.
func (d *ScriptedDoer) Requests() []*http.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*http.Request, len(d.requests))
	copy(out, d.requests)
	return out
}
