package denylist

import (
	"fmt"
	"strings"
	"time"
)

// timeLayout is the persisted timestamp format: UTC with millisecond
// precision and a literal Z suffix. Both backends share it so entries can
// migrate between them.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Timestamp wraps time.Time with the store's fixed JSON encoding.
type Timestamp struct {
	time.Time
}

// Now returns the current instant truncated to the persisted precision.
func Now() Timestamp {
	return Timestamp{time.Now().UTC().Truncate(time.Millisecond)}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(timeLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := time.Parse(timeLayout, raw)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	t.Time = parsed
	return nil
}

// Entry is one persisted rejection.
type Entry struct {
	Reason     string         `json:"reason"`
	Confidence float64        `json:"confidence"`
	Detail     map[string]any `json:"detail,omitempty"`
	// Attempts counts how many times the same identifier has been added.
	Attempts   int       `json:"attempts"`
	DetectedAt Timestamp `json:"detected_at"`
	ExpiresAt  Timestamp `json:"expires_at"`
}

// Expired reports whether the entry is logically absent at the given
// instant. An entry added with a zero TTL expires at its own detection time,
// so it is absent from the moment it is written.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// newEntry builds a fresh entry with the given TTL. Attempts starts at 1;
// refreshes increment it.
func newEntry(reason string, detail map[string]any, confidence float64, ttl time.Duration) Entry {
	now := Now()
	return Entry{
		Reason:     reason,
		Confidence: confidence,
		Detail:     detail,
		Attempts:   1,
		DetectedAt: now,
		ExpiresAt:  Timestamp{now.Add(ttl)},
	}
}

// Stats summarizes the live (unexpired) contents of a store.
type Stats struct {
	Total    int            `json:"total"`
	ByReason map[string]int `json:"by_reason"`
}
