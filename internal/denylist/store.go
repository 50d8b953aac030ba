package denylist

import (
	"context"
	"errors"
)

// ErrBackendUnavailable indicates the networked backend could not be
// reached. The Manager absorbs it at construction time; callers of an
// already-constructed store may still see it on individual redis calls.
var ErrBackendUnavailable = errors.New("denylist backend unavailable")

// ErrCorruptEntry marks a persisted record that could not be decoded. Stores
// skip and log corrupt entries rather than failing the whole document.
var ErrCorruptEntry = errors.New("corrupt denylist entry")

// Store is the contract shared by both backends.
//
// IsBlacklisted must be checked before any detection work begins so repeat
// evaluation of a known-bad identifier stays cheap. Expiry is logical: an
// entry past its expires_at reads as absent even if the underlying record
// has not been physically purged yet.
type Store interface {
	// IsBlacklisted reports whether the identifier has a live entry.
	IsBlacklisted(ctx context.Context, videoID string) (bool, error)
	// Add creates an entry or refreshes an existing one, resetting its TTL
	// and incrementing its attempt counter.
	Add(ctx context.Context, videoID, reason string, detail map[string]any, confidence float64) error
	// Remove force-deletes an entry. Removing an absent identifier is not
	// an error.
	Remove(ctx context.Context, videoID string) error
	// Entries returns the live entries keyed by identifier.
	Entries(ctx context.Context) (map[string]Entry, error)
	// Clear deletes every entry, live or expired, and returns the number
	// removed.
	Clear(ctx context.Context) (int, error)
	// Stats summarizes live entries by reason.
	Stats(ctx context.Context) (Stats, error)
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}
