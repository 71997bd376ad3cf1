package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"edumonitor/internal/models"
)

// ReportStorage keeps the most recent check report on disk so a restarted
// process can serve the last known state before its first run completes.
// Only one report is retained.
type ReportStorage struct {
	mu     sync.RWMutex
	path   string
	latest *models.Report
}

// NewReportStorage creates a storage instance and loads an existing report if present.
func NewReportStorage(path string) (*ReportStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	s := &ReportStorage{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save replaces the stored report and persists it to disk.
func (s *ReportStorage) Save(report models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = &report
	return s.persist()
}

// Latest returns the stored report if one exists.
func (s *ReportStorage) Latest() (models.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return models.Report{}, false
	}
	return *s.latest, true
}

func (s *ReportStorage) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read report: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("parse report: %w", err)
	}
	s.latest = &report
	return nil
}

func (s *ReportStorage) persist() error {
	bytes, err := json.MarshalIndent(s.latest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, bytes, 0o644); err != nil {
		return fmt.Errorf("write temp report: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace report file: %w", err)
	}
	return nil
}
