package monitor

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"edumonitor/internal/models"
)

const (
	defaultConnectivityTarget  = "8.8.8.8"
	defaultConnectivityTimeout = 3 * time.Second
)

// DialFunc opens a network connection; net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ConnectivityProber answers whether the host can reach the internet at all
// by opening a TCP connection to a public DNS resolver. It deliberately
// bypasses the HTTP stack so HTTP-level faults never read as an outage.
type ConnectivityProber struct {
	target  string
	timeout time.Duration
	dial    DialFunc

	mu     sync.RWMutex
	latest *models.ConnectivityStatus
}

// NewConnectivityProber configures a prober for target ("host" or
// "host:port"; port 53 is assumed when absent). dial may be nil.
func NewConnectivityProber(target string, timeout time.Duration, dial DialFunc) *ConnectivityProber {
	target = strings.TrimSpace(target)
	if target == "" {
		target = defaultConnectivityTarget
	}
	if timeout <= 0 {
		timeout = defaultConnectivityTimeout
	}
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	return &ConnectivityProber{target: target, timeout: timeout, dial: dial}
}

// CheckConnectivity reports whether a connection could be established.
func (p *ConnectivityProber) CheckConnectivity(ctx context.Context) bool {
	return p.Probe(ctx).OK
}

// Latest returns the most recent sample.
func (p *ConnectivityProber) Latest() (models.ConnectivityStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.latest == nil {
		return models.ConnectivityStatus{}, false
	}
	return *p.latest, true
}

// Probe dials the target once and records the sample.
func (p *ConnectivityProber) Probe(ctx context.Context) models.ConnectivityStatus {
	address := p.target
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, "53")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()
	conn, err := p.dial(ctx, "tcp", address)

	status := models.ConnectivityStatus{
		Target:    address,
		CheckedAt: time.Now().UTC(),
	}
	if err != nil {
		status.Error = err.Error()
	} else {
		status.OK = true
		status.LatencyMs = int64(time.Since(started) / time.Millisecond)
		_ = conn.Close()
	}

	p.mu.Lock()
	p.latest = &status
	p.mu.Unlock()
	return status
}
