package monitor_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"edumonitor/internal/logging"
	"edumonitor/internal/models"
	"edumonitor/internal/monitor"
	"edumonitor/internal/testutil"
)

func newProber(opts monitor.ProberOptions) *monitor.SiteProber {
	opts.Logger = logging.Discard()
	return monitor.NewSiteProber(opts)
}

func TestProbe_SuccessSendsBrowserHeaders(t *testing.T) {
	t.Parallel()

	seen := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out := newProber(monitor.ProberOptions{Timeout: time.Second}).Probe(context.Background(), srv.URL)
	if !out.Success || out.Attempts != 1 || out.StatusCode != http.StatusOK {
		t.Fatalf("outcome=%+v", out)
	}
	if out.Category != "" || out.RawError != "" {
		t.Fatalf("success carries error: %+v", out)
	}
	got := <-seen
	for _, h := range []string{"User-Agent", "Accept", "Accept-Language", "Upgrade-Insecure-Requests", "Sec-Fetch-Dest", "Sec-Fetch-Mode", "Sec-Fetch-Site", "Sec-Fetch-User"} {
		if got.Get(h) == "" {
			t.Fatalf("missing header %s in %v", h, got)
		}
	}
	if got.Get("Sec-Fetch-Mode") != "navigate" {
		t.Fatalf("Sec-Fetch-Mode=%q", got.Get("Sec-Fetch-Mode"))
	}
}

func TestProbe_NotFoundOnBothAttempts(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	out := newProber(monitor.ProberOptions{Timeout: time.Second}).Probe(context.Background(), srv.URL)
	if out.Success || out.Category != models.CategoryNotFound {
		t.Fatalf("outcome=%+v", out)
	}
	if hits.Load() != 2 || out.Attempts != 2 {
		t.Fatalf("hits=%d attempts=%d", hits.Load(), out.Attempts)
	}
	if out.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d", out.StatusCode)
	}
}

func TestProbe_RetrySucceeds(t *testing.T) {
	t.Parallel()

	doer := &testutil.ScriptedDoer{Steps: []testutil.Step{
		{Status: http.StatusInternalServerError},
		{Status: http.StatusOK},
	}}
	out := newProber(monitor.ProberOptions{Client: doer}).Probe(context.Background(), "http://flaky.test")
	if !out.Success {
		t.Fatalf("outcome=%+v", out)
	}
	if n := len(doer.Requests()); n != 2 || out.Attempts != 2 {
		t.Fatalf("requests=%d attempts=%d", n, out.Attempts)
	}
	first, second := doer.Requests()[0], doer.Requests()[1]
	if first.URL.String() != second.URL.String() || first.Header.Get("User-Agent") != second.Header.Get("User-Agent") {
		t.Fatal("retry was not identical")
	}
}

func TestProbe_NoThirdAttempt(t *testing.T) {
	t.Parallel()

	doer := &testutil.ScriptedDoer{Steps: []testutil.Step{
		{Status: http.StatusBadGateway},
		{Status: http.StatusServiceUnavailable},
		{Status: http.StatusOK},
	}}
	out := newProber(monitor.ProberOptions{Client: doer}).Probe(context.Background(), "http://down.test")
	if out.Success || out.Category != models.CategoryServiceUnavailable {
		t.Fatalf("outcome=%+v", out)
	}
	if n := len(doer.Requests()); n != 2 {
		t.Fatalf("requests=%d", n)
	}
}

func TestProbe_TransportErrors(t *testing.T) {
	t.Parallel()

	dnsErr := &url.Error{Op: "Get", URL: "http://nowhere.test", Err: &net.DNSError{
		Err: "no such host", Name: "nowhere.test", IsNotFound: true,
	}}
	doer := &testutil.ScriptedDoer{Steps: []testutil.Step{{Err: dnsErr}}}
	out := newProber(monitor.ProberOptions{Client: doer}).Probe(context.Background(), "http://nowhere.test")
	if out.Success || out.Category != models.CategoryHostUnresolved {
		t.Fatalf("outcome=%+v", out)
	}
	if out.RawError != dnsErr.Error() {
		t.Fatalf("raw=%q", out.RawError)
	}
}

func TestProbe_ConnectionRefused(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	out := newProber(monitor.ProberOptions{Timeout: time.Second}).Probe(context.Background(), "http://"+addr+"/")
	if out.Success || out.Category != models.CategoryConnectionRefused {
		t.Fatalf("outcome=%+v", out)
	}
}

func TestProbe_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	started := time.Now()
	out := newProber(monitor.ProberOptions{Timeout: 50 * time.Millisecond}).Probe(context.Background(), srv.URL)
	if out.Success || out.Category != models.CategoryTimeout {
		t.Fatalf("outcome=%+v", out)
	}
	if out.Attempts != 2 {
		t.Fatalf("attempts=%d", out.Attempts)
	}
	if elapsed := time.Since(started); elapsed > 1500*time.Millisecond {
		t.Fatalf("timeout not applied per attempt: %s", elapsed)
	}
}

func TestProbe_SelfSignedCertificate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	insecure := newProber(monitor.ProberOptions{Timeout: time.Second, InsecureSkipVerify: true})
	if out := insecure.Probe(context.Background(), srv.URL); !out.Success {
		t.Fatalf("insecure outcome=%+v", out)
	}

	strict := newProber(monitor.ProberOptions{Timeout: time.Second})
	out := strict.Probe(context.Background(), srv.URL)
	if out.Success || out.Category != models.CategoryTLSError {
		t.Fatalf("strict outcome=%+v", out)
	}
}

func TestProbe_StalledBodyFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	out := newProber(monitor.ProberOptions{Timeout: 100 * time.Millisecond}).Probe(context.Background(), srv.URL)
	if out.Success || out.Category != models.CategoryTimeout {
		t.Fatalf("outcome=%+v", out)
	}
	if out.Attempts != 2 || out.StatusCode != http.StatusOK {
		t.Fatalf("attempts=%d status=%d", out.Attempts, out.StatusCode)
	}
}
