package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"edumonitor/internal/models"
	"edumonitor/internal/monitor"
)

const (
	statusWriteTimeout = 5 * time.Second
	statusUnknown      = "unknown"
	statusUnknownMsg   = "Not checked yet"
)

var statusUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

// statusSnapshot is the dashboard view of the latest stored report.
type statusSnapshot struct {
	GeneratedAt  time.Time           `json:"generated_at"`
	CheckedAt    *time.Time          `json:"checked_at"`
	NetworkError bool                `json:"network_error"`
	Checked      int                 `json:"checked"`
	Failing      int                 `json:"failing"`
	Results      []models.SiteStatus `json:"results"`
}

func (s *Server) buildStatusSnapshot() statusSnapshot {
	endpoints := s.checker.Endpoints()
	snapshot := statusSnapshot{
		GeneratedAt: time.Now().UTC(),
	}

	report, ok := s.reports.Latest()
	if !ok {
		snapshot.Results = make([]models.SiteStatus, 0, len(endpoints))
		for _, ep := range endpoints {
			snapshot.Results = append(snapshot.Results, models.SiteStatus{
				Name:   ep.Name,
				URL:    ep.URL,
				Status: statusUnknown,
				Msg:    statusUnknownMsg,
			})
		}
		return snapshot
	}

	checkedAt := report.CheckedAt
	snapshot.CheckedAt = &checkedAt
	snapshot.NetworkError = report.NetworkError
	snapshot.Checked = report.Checked
	snapshot.Results = monitor.Summarize(report, endpoints)
	for _, result := range snapshot.Results {
		if result.Status == models.SiteStatusError {
			snapshot.Failing++
		}
	}
	return snapshot
}

func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := statusUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	s.serveStatusConnection(conn)
}

func (s *Server) serveStatusConnection(conn *websocket.Conn) {
	defer conn.Close()

	if err := writeStatusPayload(conn, s.buildStatusSnapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			if err := writeStatusPayload(conn, s.buildStatusSnapshot()); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeStatusPayload(conn *websocket.Conn, payload statusSnapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(statusWriteTimeout))
	return conn.WriteJSON(payload)
}
