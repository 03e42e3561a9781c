package metrics

import "sync"

// Latest holds the most recent snapshot for pull-based exporters.
type Latest struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewLatest creates an empty holder.
func NewLatest() *Latest {
	return &Latest{}
}

// Store replaces the held snapshot.
func (l *Latest) Store(s *Snapshot) {
	l.mu.Lock()
	l.snap = s
	l.mu.Unlock()
}

// Load returns the held snapshot, or nil before the first Store. Callers
// must treat it as read-only.
func (l *Latest) Load() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}
