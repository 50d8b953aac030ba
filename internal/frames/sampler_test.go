package frames

import (
	"testing"
	"time"
)

func TestPlanTimestampsRespectsCap(t *testing.T) {
	plan := planTimestamps(60*time.Second, 2*time.Second, 5)
	if len(plan) != 5 {
		t.Fatalf("expected cap of 5 timestamps, got %d", len(plan))
	}
	for i, ts := range plan {
		want := time.Duration(i) * 2 * time.Second
		if ts != want {
			t.Fatalf("plan[%d] = %v, want %v", i, ts, want)
		}
	}
}

func TestPlanTimestampsStopsAtDuration(t *testing.T) {
	plan := planTimestamps(10*time.Second, 2*time.Second, 100)
	// 0, 2, 4, 6, 8 — the 10s mark is at/past the end of the clip.
	if len(plan) != 5 {
		t.Fatalf("expected 5 timestamps for a 10s clip, got %d: %v", len(plan), plan)
	}
	if last := plan[len(plan)-1]; last != 8*time.Second {
		t.Fatalf("last timestamp = %v, want 8s", last)
	}
}

func TestPlanTimestampsUnknownDuration(t *testing.T) {
	plan := planTimestamps(0, 2*time.Second, 10)
	if len(plan) != 1 || plan[0] != 0 {
		t.Fatalf("unknown duration should still try t=0, got %v", plan)
	}
}

func TestPlanTimestampsShortClip(t *testing.T) {
	plan := planTimestamps(1500*time.Millisecond, 2*time.Second, 10)
	if len(plan) != 1 {
		t.Fatalf("expected a single timestamp for a sub-interval clip, got %v", plan)
	}
}
