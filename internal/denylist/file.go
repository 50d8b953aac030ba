package denylist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"subscreen/internal/logging"
)

// FileStore keeps the denylist in a single JSON document keyed by video
// identifier. Multiple worker processes may share one file; every
// read-modify-write cycle holds an advisory lock so concurrent adds do not
// lose entries. The file has no native expiry, so live reads check
// expires_at and mutating calls sweep expired records.
type FileStore struct {
	path   string
	ttl    time.Duration
	logger *slog.Logger

	mu   sync.Mutex
	lock *flock.Flock
}

// NewFileStore opens (or lazily creates) the document at path.
func NewFileStore(path string, ttl time.Duration, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("denylist path cannot be empty")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create denylist directory: %w", err)
	}
	return &FileStore{
		path:   path,
		ttl:    ttl,
		logger: logging.NewComponentLogger(logger, "denylist"),
		lock:   flock.New(path + ".lock"),
	}, nil
}

// IsBlacklisted reports whether videoID has a live entry.
func (s *FileStore) IsBlacklisted(ctx context.Context, videoID string) (bool, error) {
	entries, err := s.withLock(ctx, false, nil)
	if err != nil {
		return false, err
	}
	entry, ok := entries[videoID]
	return ok && !entry.Expired(time.Now()), nil
}

// Add creates or refreshes the entry for videoID and sweeps expired records
// while it holds the lock. A repeat rejection carries the attempt count
// forward; both timestamps are refreshed.
func (s *FileStore) Add(ctx context.Context, videoID, reason string, detail map[string]any, confidence float64) error {
	if videoID == "" {
		return errors.New("video id cannot be empty")
	}
	_, err := s.withLock(ctx, true, func(entries map[string]Entry) {
		entry := newEntry(reason, detail, confidence, s.ttl)
		if prev, ok := entries[videoID]; ok && !prev.Expired(time.Now()) {
			entry.Attempts = prev.Attempts + 1
		}
		entries[videoID] = entry
	})
	return err
}

// Remove force-deletes the entry for videoID.
func (s *FileStore) Remove(ctx context.Context, videoID string) error {
	_, err := s.withLock(ctx, true, func(entries map[string]Entry) {
		delete(entries, videoID)
	})
	return err
}

// Entries returns a copy of the live entries.
func (s *FileStore) Entries(ctx context.Context) (map[string]Entry, error) {
	entries, err := s.withLock(ctx, false, nil)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	live := make(map[string]Entry, len(entries))
	for id, entry := range entries {
		if !entry.Expired(now) {
			live[id] = entry
		}
	}
	return live, nil
}

// Clear deletes every entry, including expired ones awaiting a sweep.
func (s *FileStore) Clear(ctx context.Context) (int, error) {
	removed := 0
	_, err := s.withLock(ctx, true, func(entries map[string]Entry) {
		removed = len(entries)
		for id := range entries {
			delete(entries, id)
		}
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Stats summarizes live entries by reason.
func (s *FileStore) Stats(ctx context.Context) (Stats, error) {
	live, err := s.Entries(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{ByReason: make(map[string]int)}
	for _, entry := range live {
		stats.Total++
		stats.ByReason[entry.Reason]++
	}
	return stats, nil
}

// Ping verifies the document's directory is writable.
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

// Close is a no-op; the file lock is released after each operation.
func (s *FileStore) Close() error { return nil }

// withLock runs one read-modify-write cycle under both the in-process mutex
// and the cross-process advisory lock. mutate may be nil for read-only
// calls; it receives the decoded document and its changes are persisted
// when persist is true. Expired entries are swept before persisting.
func (s *FileStore) withLock(ctx context.Context, persist bool, mutate func(map[string]Entry)) (map[string]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquire denylist lock: %w", err)
	}
	if !locked {
		return nil, errors.New("denylist lock not acquired")
	}
	defer func() {
		if unlockErr := s.lock.Unlock(); unlockErr != nil {
			s.logger.Warn("failed to release denylist lock", logging.Error(unlockErr))
		}
	}()

	entries, err := s.read()
	if err != nil {
		return nil, err
	}

	if mutate != nil {
		mutate(entries)
	}
	if persist {
		s.sweep(entries)
		if err := s.write(entries); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// read decodes the document entry by entry so one malformed record does not
// poison the rest.
func (s *FileStore) read() (map[string]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]Entry), nil
		}
		return nil, fmt.Errorf("read denylist: %w", err)
	}
	if len(data) == 0 {
		return make(map[string]Entry), nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse denylist document: %w", err)
	}

	entries := make(map[string]Entry, len(raw))
	for id, blob := range raw {
		var entry Entry
		if err := json.Unmarshal(blob, &entry); err != nil {
			logging.WarnWithContext(s.logger, "skipping corrupt denylist entry", "denylist_corrupt_entry",
				logging.String(logging.FieldVideoID, id),
				logging.Error(fmt.Errorf("%w: %v", ErrCorruptEntry, err)),
				logging.String(logging.FieldImpact, "entry dropped; the video may be re-evaluated"))
			continue
		}
		entries[id] = entry
	}
	return entries, nil
}

// write persists the document atomically via a temp file rename.
func (s *FileStore) write(entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal denylist: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp denylist: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp denylist: %w", err)
	}
	return nil
}

func (s *FileStore) sweep(entries map[string]Entry) {
	now := time.Now()
	for id, entry := range entries {
		if entry.Expired(now) {
			delete(entries, id)
		}
	}
}
