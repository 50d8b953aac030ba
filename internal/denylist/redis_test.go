package denylist_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"subscreen/internal/denylist"
	"subscreen/internal/logging"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*denylist.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	store, err := denylist.NewRedisStore("redis://"+srv.Addr(), ttl, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, srv
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	ctx := context.Background()

	blocked, err := store.IsBlacklisted(ctx, "vid-1")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if blocked {
		t.Fatal("fresh store should not contain vid-1")
	}

	if err := store.Add(ctx, "vid-1", "embedded_subtitles", map[string]any{"frames": 5}, 0.91); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	blocked, err = store.IsBlacklisted(ctx, "vid-1")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if !blocked {
		t.Fatal("vid-1 should be blacklisted after Add")
	}

	entries, err := store.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	entry, ok := entries["vid-1"]
	if !ok {
		t.Fatal("vid-1 missing from Entries")
	}
	if entry.Reason != "embedded_subtitles" || entry.Confidence != 0.91 || entry.Attempts != 1 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestRedisStoreZeroTTLIsLogicallyAbsent(t *testing.T) {
	store, _ := newRedisStore(t, 0)
	ctx := context.Background()

	if err := store.Add(ctx, "vid-1", "embedded_subtitles", nil, 0.9); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	blocked, err := store.IsBlacklisted(ctx, "vid-1")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if blocked {
		t.Fatal("entry with zero TTL must read as absent")
	}
}

func TestRedisStoreRefreshIncrementsAttemptsAndTimestamps(t *testing.T) {
	store, srv := newRedisStore(t, time.Hour)
	ctx := context.Background()

	// Seed an unexpired entry detected well in the past.
	old := `{"reason": "embedded_subtitles", "confidence": 0.8, "attempts": 2,
		"detected_at": "2026-08-01T10:00:00.000Z", "expires_at": "2030-01-01T00:00:00.000Z"}`
	if err := srv.Set("denylist:video:vid-1", old); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	if err := store.Add(ctx, "vid-1", "embedded_subtitles", nil, 0.9); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	entries, err := store.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	entry := entries["vid-1"]
	if entry.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", entry.Attempts)
	}
	oldDetected := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	if !entry.DetectedAt.After(oldDetected) {
		t.Fatalf("DetectedAt = %v, want refreshed past %v", entry.DetectedAt, oldDetected)
	}
}

func TestRedisStoreStatsCountsEveryRejection(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	ctx := context.Background()

	// Two rejections of the same video plus one of another: three counted.
	for _, id := range []string{"vid-1", "vid-1", "vid-2"} {
		if err := store.Add(ctx, id, "embedded_subtitles", nil, 0.9); err != nil {
			t.Fatalf("Add %s failed: %v", id, err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 || stats.ByReason["embedded_subtitles"] != 3 {
		t.Fatalf("Stats = %+v, want 3 recorded rejections", stats)
	}

	// Removing vid-1 subtracts both of its recorded rejections.
	if err := store.Remove(ctx, "vid-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 1 || stats.ByReason["embedded_subtitles"] != 1 {
		t.Fatalf("Stats after Remove = %+v, want 1", stats)
	}
}

func TestRedisStoreRemove(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	ctx := context.Background()

	if err := store.Add(ctx, "vid-1", "embedded_subtitles", nil, 0.9); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Remove(ctx, "vid-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	blocked, err := store.IsBlacklisted(ctx, "vid-1")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if blocked {
		t.Fatal("vid-1 should be absent after Remove")
	}
	// Removing an already-absent id must not fail.
	if err := store.Remove(ctx, "vid-1"); err != nil {
		t.Fatalf("Remove of absent id failed: %v", err)
	}
}

func TestRedisStoreClear(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	ctx := context.Background()

	for _, id := range []string{"vid-a", "vid-b", "vid-c"} {
		if err := store.Add(ctx, id, "embedded_subtitles", nil, 0.9); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 3 {
		t.Fatalf("Clear removed %d entries, want 3", removed)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("Stats.Total = %d after Clear, want 0", stats.Total)
	}
}

func TestRedisStoreSkipsCorruptEntries(t *testing.T) {
	store, srv := newRedisStore(t, time.Hour)
	ctx := context.Background()

	if err := srv.Set("denylist:video:vid-bad", "not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}
	if err := store.Add(ctx, "vid-good", "embedded_subtitles", nil, 0.9); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	blocked, err := store.IsBlacklisted(ctx, "vid-bad")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if blocked {
		t.Fatal("corrupt entry must read as absent")
	}

	entries, err := store.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if _, ok := entries["vid-bad"]; ok {
		t.Fatal("corrupt entry must be skipped by Entries")
	}
	if _, ok := entries["vid-good"]; !ok {
		t.Fatal("intact entry should survive a corrupt sibling")
	}
}
