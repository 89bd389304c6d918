package telemetry

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryStoreCountsAndFirstVisit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := store.RecordVisit(ctx, "user-1", "journal", start.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("record error: %v", err)
		}
	}

	count, err := store.VisitCount(ctx, "user-1", "journal")
	if err != nil || count != 3 {
		t.Fatalf("expected count 3, got %d err=%v", count, err)
	}
	first, ok, err := store.FirstVisit(ctx, "user-1", "journal")
	if err != nil || !ok || !first.Equal(start) {
		t.Fatalf("expected first visit %s, got %s ok=%v err=%v", start, first, ok, err)
	}

	count, err = store.VisitCount(ctx, "user-1", "chat")
	if err != nil || count != 0 {
		t.Fatalf("expected zero count for unvisited feature, got %d", count)
	}
}

func TestMemoryStoreLogEvictsOldestAtCap(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < LogCap+1; i++ {
		feature := fmt.Sprintf("feature-%d", i)
		if err := store.RecordVisit(ctx, "user-1", feature, start.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("record error: %v", err)
		}
	}

	visits, err := store.RecentVisits(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("recent error: %v", err)
	}
	if len(visits) != LogCap {
		t.Fatalf("expected log capped at %d, got %d", LogCap, len(visits))
	}
	// Newest first; the very first entry must be the one evicted.
	if visits[0].Feature != fmt.Sprintf("feature-%d", LogCap) {
		t.Fatalf("expected newest entry first, got %s", visits[0].Feature)
	}
	for _, visit := range visits {
		if visit.Feature == "feature-0" {
			t.Fatalf("expected oldest entry to be evicted")
		}
	}
}

func TestMemoryStoreRecentVisitsLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		_ = store.RecordVisit(ctx, "user-1", "journal", now.Add(time.Duration(i)*time.Second))
	}
	visits, err := store.RecentVisits(ctx, "user-1", 2)
	if err != nil || len(visits) != 2 {
		t.Fatalf("expected 2 visits, got %d err=%v", len(visits), err)
	}
}

func TestSplashDurationThresholds(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		count  int64
		first  time.Time
		expect time.Duration
	}{
		{"new user", 1, now.Add(-time.Hour), SplashFull},
		{"no first visit", 0, time.Time{}, SplashFull},
		{"20 visits", 20, now.Add(-time.Hour), SplashShort},
		{"7 days", 2, now.Add(-8 * 24 * time.Hour), SplashShort},
		{"50 visits", 50, now.Add(-time.Hour), SplashMinimal},
		{"14 days", 2, now.Add(-15 * 24 * time.Hour), SplashMinimal},
	}
	for _, tc := range cases {
		if got := SplashDuration(tc.count, tc.first, now); got != tc.expect {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expect, got)
		}
	}
}
