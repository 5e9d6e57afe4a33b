package collector

import (
	"sync"
	"time"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

// Store holds the latest published GlobalMetrics. Publication replaces the
// whole value under an exclusive lock; readers receive a deep copy, so a
// reader can never observe a mix of old and new sub-fields.
type Store struct {
	mu      sync.RWMutex
	current domain.GlobalMetrics
	updated bool
}

// NewStore creates an empty metrics store.
func NewStore() *Store {
	return &Store{}
}

// Publish atomically replaces the stored metrics.
func (s *Store) Publish(m domain.GlobalMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = m
	s.updated = true
}

// Snapshot returns a deep copy of the latest published metrics. The second
// return value is false until the first publish.
func (s *Store) Snapshot() (domain.GlobalMetrics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone(), s.updated
}

// LastUpdate reports the timestamp of the latest published cycle, zero
// before the first publish.
func (s *Store) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.LastUpdate
}
