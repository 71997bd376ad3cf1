package monitor

import (
	"errors"
	"net"
	"net/url"
	"strings"

	"edumonitor/internal/models"
)

// classificationRule maps error text to a category when any of its
// substrings is present. When all is set, every substring must be present.
type classificationRule struct {
	category models.ErrorCategory
	any      []string
	all      []string
}

// classificationRules is evaluated in order and the first match wins.
//
// Matching is heuristic: the transports report failures as free text, not
// structured codes, so the table looks for the phrases Go's resolver, dialer,
// TLS stack and status errors actually produce, plus the equivalents other
// HTTP stacks emit for the same conditions.
var classificationRules = []classificationRule{
	{category: models.CategoryHostUnresolved, any: []string{
		"no such host",
		"name or service not known",
		"getaddrinfo failed",
		"name resolution",
		"no address associated with hostname",
		"nodename nor servname",
		"server misbehaving",
	}},
	{category: models.CategoryConnectionRefused, all: []string{"connect", "refused"}},
	{category: models.CategoryTimeout, any: []string{"timed out", "timeout", "deadline exceeded"}},
	{category: models.CategoryTLSError, any: []string{"ssl", "tls", "x509", "certificate"}},
	{category: models.CategoryNotFound, any: []string{"404"}},
	{category: models.CategoryBadRequest, any: []string{"400"}},
	{category: models.CategoryServerError, any: []string{"500"}},
	{category: models.CategoryServiceUnavailable, any: []string{"502", "503"}},
}

// Classify maps a raw error message onto an ErrorCategory.
func Classify(message string) models.ErrorCategory {
	msg := strings.ToLower(message)
	for _, rule := range classificationRules {
		if rule.matches(msg) {
			return rule.category
		}
	}
	return models.CategoryUnknown
}

func (r classificationRule) matches(msg string) bool {
	if len(r.all) > 0 {
		for _, s := range r.all {
			if !strings.Contains(msg, s) {
				return false
			}
		}
		return true
	}
	for _, s := range r.any {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// classifyError returns the category and the raw text shown to users.
// Any resolver failure is host_unresolved, whatever its wording; a lookup
// that timed out or could not reach the DNS server is still a DNS problem.
// Other transport errors are classified on the inner error so the request
// URL, which url.Error prefixes, cannot trigger a rule by itself.
func classifyError(err error) (models.ErrorCategory, string) {
	raw := err.Error()

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return models.CategoryHostUnresolved, raw
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return Classify(statusErr.summary()), raw
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return Classify(urlErr.Err.Error()), raw
	}
	return Classify(raw), raw
}
