package alert

import (
	"sync"

	"github.com/vaultwatch/vaultwatch/internal/domain"
)

const (
	// logCap is the hard capacity of the alert log.
	logCap = 1000

	// compactionDrop is how many of the oldest entries one compaction
	// removes once the log exceeds logCap.
	compactionDrop = 500
)

// Log is the append-only in-memory alert store. It grows until it exceeds
// its capacity, then evicts the oldest half in one compaction, preserving
// the relative order of the remainder.
type Log struct {
	mu      sync.RWMutex
	entries []domain.Alert
}

// NewLog creates an empty alert log.
func NewLog() *Log {
	return &Log{}
}

// Append adds alerts to the log and compacts when the capacity is exceeded.
func (l *Log) Append(alerts ...domain.Alert) {
	if len(alerts) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, alerts...)
	if len(l.entries) > logCap {
		remaining := make([]domain.Alert, len(l.entries)-compactionDrop)
		copy(remaining, l.entries[compactionDrop:])
		l.entries = remaining
	}
}

// Snapshot returns a copy of the current log contents, oldest first.
func (l *Log) Snapshot() []domain.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Alert, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the current number of retained alerts.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
