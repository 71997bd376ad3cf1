package models

import (
	"time"
)

// Endpoint defines a monitored web site. Name is the identity key.
type Endpoint struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ErrorCategory is the human-meaningful class of a failed probe.
type ErrorCategory string

const (
	CategoryHostUnresolved     ErrorCategory = "host_unresolved"
	CategoryConnectionRefused  ErrorCategory = "connection_refused"
	CategoryTimeout            ErrorCategory = "timeout"
	CategoryTLSError           ErrorCategory = "tls_error"
	CategoryNotFound           ErrorCategory = "not_found"
	CategoryBadRequest         ErrorCategory = "bad_request"
	CategoryServerError        ErrorCategory = "server_error"
	CategoryServiceUnavailable ErrorCategory = "service_unavailable"
	CategoryUnknown            ErrorCategory = "unknown"
)

var categoryDescriptions = map[ErrorCategory]string{
	CategoryHostUnresolved:     "Site address (domain) could not be resolved.",
	CategoryConnectionRefused:  "Connection was refused (server presumed down).",
	CategoryTimeout:            "Response timed out (slow connection).",
	CategoryTLSError:           "Security certificate error.",
	CategoryNotFound:           "Page not found (404 Not Found).",
	CategoryBadRequest:         "Bad request (400 Bad Request).",
	CategoryServerError:        "Internal server error (500 Internal Server Error).",
	CategoryServiceUnavailable: "Server temporarily unavailable (502/503).",
}

// Describe returns display text for the category. Unknown failures show the raw error.
func (c ErrorCategory) Describe(raw string) string {
	if text, ok := categoryDescriptions[c]; ok {
		return text
	}
	return "Connection failed: " + raw
}

// ProbeOutcome captures the terminal result of probing one endpoint.
type ProbeOutcome struct {
	Name       string        `json:"name"`
	URL        string        `json:"url"`
	Success    bool          `json:"success"`
	Category   ErrorCategory `json:"error_category,omitempty"`
	RawError   string        `json:"raw_error,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	Attempts   int           `json:"attempts"`
	DurationMS int64         `json:"duration_ms"`
}

// Message is the display text for a failed outcome.
func (o ProbeOutcome) Message() string {
	if o.Success {
		return "OK"
	}
	return o.Category.Describe(o.RawError)
}

// Report is the aggregated result of one check run.
//
// NetworkError and Failures are mutually exclusive: when the connectivity
// precondition fails no site is probed and Failures is empty.
type Report struct {
	NetworkError bool           `json:"network_error"`
	Failures     []ProbeOutcome `json:"failures"`
	Checked      int            `json:"checked"`
	CheckedAt    time.Time      `json:"checked_at"`
}

// SiteStatus is the per-site projection of a report rendered by front-ends.
type SiteStatus struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

const (
	SiteStatusOK    = "ok"
	SiteStatusError = "error"
)

// ConnectivityStatus is one sample of the network precondition check.
type ConnectivityStatus struct {
	Target    string    `json:"target"`
	OK        bool      `json:"ok"`
	LatencyMs int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
