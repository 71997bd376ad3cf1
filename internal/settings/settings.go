package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	DefaultIntervalMinutes = 10
	DefaultShowPopup       = true
)

// ErrInvalidInterval is returned by Update for intervals below one minute.
var ErrInvalidInterval = errors.New("interval_minutes must be at least 1")

// Settings are the user-facing scheduling preferences.
type Settings struct {
	IntervalMinutes int  `json:"interval_minutes"`
	ShowPopup       bool `json:"show_popup"`
}

// Interval returns the check period.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

const (
	keyIntervalMinutes = "interval_minutes"
	keyShowPopup       = "show_popup"
)

// Store persists Settings as a JSON document.
type Store struct {
	mu      sync.RWMutex
	path    string
	current Settings
	// extra holds keys written by other tools; they are written back untouched.
	extra map[string]json.RawMessage
}

// Open loads settings from path. Missing keys, a missing file or an
// unreadable document all fall back to defaults, which are written back.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	s.current, s.extra = s.read()
	if err := s.persistLocked(); err != nil {
		return s, err
	}
	return s, nil
}

// Get returns the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update replaces the settings and persists them.
func (s *Store) Update(next Settings) error {
	if next.IntervalMinutes < 1 {
		return ErrInvalidInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
	return s.persistLocked()
}

func (s *Store) read() (Settings, map[string]json.RawMessage) {
	out := Settings{IntervalMinutes: DefaultIntervalMinutes, ShowPopup: DefaultShowPopup}

	data, err := os.ReadFile(s.path)
	if err != nil || len(data) == 0 {
		return out, nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return out, nil
	}
	if v, ok := doc[keyIntervalMinutes]; ok {
		var minutes int
		if json.Unmarshal(v, &minutes) == nil && minutes >= 1 {
			out.IntervalMinutes = minutes
		}
	}
	if v, ok := doc[keyShowPopup]; ok {
		var show bool
		if json.Unmarshal(v, &show) == nil {
			out.ShowPopup = show
		}
	}
	delete(doc, keyIntervalMinutes)
	delete(doc, keyShowPopup)
	return out, doc
}

func (s *Store) persistLocked() error {
	doc := make(map[string]any, len(s.extra)+2)
	for k, v := range s.extra {
		doc[k] = v
	}
	doc[keyIntervalMinutes] = s.current.IntervalMinutes
	doc[keyShowPopup] = s.current.ShowPopup

	bytes, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure settings directory: %w", err)
		}
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, bytes, 0o644); err != nil {
		return fmt.Errorf("write temp settings: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
