package duckdb

import (
	"context"
	"testing"
	"time"

	"github.com/nexumobscura/nexum/internal/model"
)

func TestRetentionCleaner_DisabledReturnsNil(t *testing.T) {
	store := newTestStore(t)
	if rc := NewRetentionCleaner(store, 0, nil); rc != nil {
		t.Fatal("expected nil cleaner when retention is 0")
	}
	var rc *RetentionCleaner
	rc.Stop()
}

func TestRetentionCleaner_StopIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	cleaner := NewRetentionCleaner(store, 1, nil)
	if cleaner == nil {
		t.Fatal("expected non-nil retention cleaner")
	}
	cleaner.Stop()
	cleaner.Stop()
}

func TestRetentionCleaner_ExpiresOldRows(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	old := testEntry("old", "a.csv", 0)
	old.ProcessedAt = now.Add(-40 * 24 * time.Hour)
	fresh := testEntry("fresh", "a.csv", 0)
	fresh.ProcessedAt = now.Add(-time.Hour)
	err := store.Apply([]op{
		{kind: opEntry, entry: old},
		{kind: opEntry, entry: fresh},
		{kind: opActivity, activity: model.ActivityEntry{ID: "old", Time: now.Add(-31 * 24 * time.Hour), Event: "e", Level: model.LevelInfo}},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	rc := NewRetentionCleaner(store, 30, func() time.Time { return now })
	defer rc.Stop()

	n, err := store.EntryCount(context.Background(), "")
	if err != nil {
		t.Fatalf("EntryCount: %v", err)
	}
	if n != 1 {
		t.Fatalf("entries after cleanup = %d, want 1", n)
	}
	if again := rc.Cleanup(); again != 0 {
		t.Fatalf("second cleanup removed %d rows", again)
	}
}
