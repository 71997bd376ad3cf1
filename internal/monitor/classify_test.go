package monitor

import (
	"errors"
	"net"
	"net/url"
	"testing"

	"edumonitor/internal/models"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want models.ErrorCategory
	}{
		{"dial tcp: lookup sen.go.kr on 127.0.0.53:53: no such host", models.CategoryHostUnresolved},
		{"Failed to resolve: [Errno -2] Name or service not known", models.CategoryHostUnresolved},
		{"getaddrinfo failed", models.CategoryHostUnresolved},
		{"dial tcp 10.0.0.1:443: connect: connection refused", models.CategoryConnectionRefused},
		{"net/http: request canceled (Client.Timeout exceeded while awaiting headers)", models.CategoryTimeout},
		{"context deadline exceeded", models.CategoryTimeout},
		{"read tcp: i/o timeout", models.CategoryTimeout},
		{"Read timed out.", models.CategoryTimeout},
		{"tls: failed to verify certificate: x509: certificate signed by unknown authority", models.CategoryTLSError},
		{"[SSL: WRONG_VERSION_NUMBER]", models.CategoryTLSError},
		{"404 Client Error: Not Found", models.CategoryNotFound},
		{"400 Client Error: Bad Request", models.CategoryBadRequest},
		{"500 Server Error: Internal Server Error", models.CategoryServerError},
		{"502 Server Error: Bad Gateway", models.CategoryServiceUnavailable},
		{"503 Server Error: Service Unavailable", models.CategoryServiceUnavailable},
		{"403 Client Error: Forbidden", models.CategoryUnknown},
		{"connection reset by peer", models.CategoryUnknown},
		{"", models.CategoryUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.msg); got != tt.want {
			t.Fatalf("Classify(%q)=%q want %q", tt.msg, got, tt.want)
		}
	}
}

func TestClassify_FirstRuleWins(t *testing.T) {
	t.Parallel()

	// A TLS handshake timeout mentions both; timeout is listed first.
	if got := Classify("net/http: TLS handshake timeout"); got != models.CategoryTimeout {
		t.Fatalf("got=%q", got)
	}
	// Refusal outranks anything that happens to contain a status number.
	if got := Classify("dial tcp 10.0.0.1:5000: connect: connection refused"); got != models.CategoryConnectionRefused {
		t.Fatalf("got=%q", got)
	}
}

func TestClassifyError_IgnoresURLText(t *testing.T) {
	t.Parallel()

	err := &url.Error{
		Op:  "Get",
		URL: "https://timeout-404.example",
		Err: &net.DNSError{Err: "no such host", Name: "timeout-404.example", IsNotFound: true},
	}
	category, raw := classifyError(err)
	if category != models.CategoryHostUnresolved {
		t.Fatalf("category=%q", category)
	}
	if raw != err.Error() {
		t.Fatalf("raw=%q", raw)
	}
}

func TestClassifyError_StatusError(t *testing.T) {
	t.Parallel()

	err := &StatusError{Code: 503, URL: "http://example.test/500"}
	category, raw := classifyError(err)
	if category != models.CategoryServiceUnavailable {
		t.Fatalf("category=%q", category)
	}
	if raw != "503 Server Error: Service Unavailable for url: http://example.test/500" {
		t.Fatalf("raw=%q", raw)
	}

	wrapped := errors.Join(errors.New("attempt 2"), &StatusError{Code: 404, URL: "http://x"})
	if category, _ := classifyError(wrapped); category != models.CategoryNotFound {
		t.Fatalf("wrapped category=%q", category)
	}
}

func TestClassifyError_ResolverFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dns  *net.DNSError
	}{
		{"temporary failure", &net.DNSError{
			Err: "Temporary failure in name resolution", Name: "sen.go.kr", IsTemporary: true,
		}},
		{"lookup timeout", &net.DNSError{
			Err: "i/o timeout", Name: "sen.go.kr", Server: "127.0.0.53:53", IsTimeout: true,
		}},
		{"resolver refused", &net.DNSError{
			Err: "dial udp 127.0.0.53:53: connect: connection refused", Name: "sen.go.kr", Server: "127.0.0.53:53",
		}},
	}
	for _, tt := range tests {
		err := &url.Error{Op: "Get", URL: "http://sen.go.kr", Err: &net.OpError{Op: "dial", Net: "tcp", Err: tt.dns}}
		category, raw := classifyError(err)
		if category != models.CategoryHostUnresolved {
			t.Fatalf("%s: category=%q raw=%q", tt.name, category, raw)
		}
		if raw != err.Error() {
			t.Fatalf("%s: raw=%q", tt.name, raw)
		}
	}
}

func TestClassify_ResolverPhrases(t *testing.T) {
	t.Parallel()

	for _, msg := range []string{
		"lookup sen.go.kr: Temporary failure in name resolution",
		"lookup sen.go.kr: No address associated with hostname",
	} {
		if got := Classify(msg); got != models.CategoryHostUnresolved {
			t.Fatalf("Classify(%q)=%q", msg, got)
		}
	}
}
