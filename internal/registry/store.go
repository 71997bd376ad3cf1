package registry

import (
	"log/slog"
	"sync/atomic"
)

// Store holds the current registry snapshot. Reloads swap in a new value;
// a snapshot handed out by Current is never modified.
type Store struct {
	path    string
	logger  *slog.Logger
	current atomic.Pointer[Registry]
}

// NewStore loads path once and returns a store serving that snapshot.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger}
	s.current.Store(Empty())
	s.Reload()
	return s
}

// Current returns the active snapshot.
func (s *Store) Current() *Registry {
	return s.current.Load()
}

// Path returns the source file.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the source and publishes the result. Read errors are
// logged and publish an empty registry.
func (s *Store) Reload() *Registry {
	reg, err := Load(s.path)
	if err != nil {
		s.logger.Error("registry load failed", "path", s.path, "error", err)
	}
	s.current.Store(reg)
	s.logger.Info("registry loaded", "path", s.path, "endpoints", reg.Len())
	return reg
}
