package metrics

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"sysmon/internal/encoding"
)

// cachedSnapshot is the on-disk envelope.
type cachedSnapshot struct {
	Snapshot *Snapshot `cbor:"snapshot"`
	SavedAt  time.Time `cbor:"saved_at"`
}

// SnapshotCache persists the latest snapshot to a CBOR file so short-lived
// CLI commands can read what a running daemon last saw.
type SnapshotCache struct {
	path   string
	maxAge time.Duration
	mu     sync.RWMutex
}

// NewSnapshotCache creates a cache at path; entries older than maxAge are
// treated as missing.
func NewSnapshotCache(path string, maxAge time.Duration) *SnapshotCache {
	return &SnapshotCache{path: path, maxAge: maxAge}
}

// Path returns the cache file path.
func (c *SnapshotCache) Path() string { return c.path }

// Save writes s atomically (temp file then rename).
func (c *SnapshotCache) Save(s *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := encoding.MarshalCBOR(cachedSnapshot{Snapshot: s, SavedAt: time.Now()})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	tmpFile := c.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpFile, c.path)
}

// Load returns the cached snapshot and true when it exists and is fresh.
func (c *SnapshotCache) Load() (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, false
	}

	var cached cachedSnapshot
	if err := encoding.UnmarshalCBOR(data, &cached); err != nil || cached.Snapshot == nil {
		return nil, false
	}
	if c.maxAge > 0 && time.Since(cached.SavedAt) > c.maxAge {
		return nil, false
	}
	cached.Snapshot.EnsureComplete()
	return cached.Snapshot, true
}

// Clear removes the cache file.
func (c *SnapshotCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
