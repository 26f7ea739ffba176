package duckdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nexumobscura/nexum/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("", time.Minute)
	if err != nil {
		t.Fatalf("NewStore(\"\") failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testEntry(id, source string, score int) model.LogEntry {
	risk := model.RiskLow
	if score > 70 {
		risk = model.RiskHigh
	}
	return model.LogEntry{
		KnownFields: model.KnownFields{
			SourceIP: "10.0.0.1",
			DestIP:   "8.8.8.8",
			Protocol: "TCP",
			Action:   "ALLOW",
			Bytes:    "512",
			Duration: "45",
		},
		ID:             id,
		SourceFile:     source,
		ProcessedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		SuspicionScore: score,
		RiskLevel:      risk,
		AnomalyType:    model.AnomalyNone,
		At:             time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		Columns:        map[string]string{"source_ip": "10.0.0.1", "extra": "kept"},
		Order:          []string{"source_ip", "extra"},
	}
}

func entryOps(source string, n, score int) []op {
	ops := make([]op, n)
	for i := range ops {
		ops[i] = op{kind: opEntry, entry: testEntry(fmt.Sprintf("%s-%d", source, i+1), source, score)}
	}
	return ops
}

func TestApply_InsertsEntriesFilesAndActivity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	batch := entryOps("a.csv", 3, 80)
	batch = append(batch,
		op{kind: opFile, file: model.UploadedFile{Filename: "a.csv", RecordsProcessed: 3, Size: 99, UploadTime: time.Now()}},
		op{kind: opActivity, activity: model.ActivityEntry{ID: "act-1", Time: time.Now(), Event: "Processed a.csv", Level: model.LevelSuccess, Source: "a.csv"}},
	)
	if err := store.Apply(batch); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	sum, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Entries != 3 || sum.Files != 1 || sum.Activity != 1 {
		t.Fatalf("summary counts = %+v, want 3/1/1", sum)
	}
	if len(sum.SourceFiles) != 1 || sum.SourceFiles[0].HighRisk != 3 || sum.SourceFiles[0].AvgScore != 80 {
		t.Fatalf("per-file = %+v", sum.SourceFiles)
	}
	if sum.OldestEntry != "2024-01-02T03:04:05.000Z" {
		t.Errorf("OldestEntry = %q", sum.OldestEntry)
	}

	var cols string
	if err := store.DB().QueryRow(`SELECT columns FROM log_entries LIMIT 1`).Scan(&cols); err != nil {
		t.Fatalf("read columns: %v", err)
	}
	if cols != `{"extra":"kept","source_ip":"10.0.0.1"}` {
		t.Errorf("columns = %s", cols)
	}
}

func TestApply_RemoveSourceFileCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	batch := append(entryOps("x.csv", 5, 10), entryOps("y.csv", 2, 10)...)
	batch = append(batch,
		op{kind: opFile, file: model.UploadedFile{Filename: "x.csv", RecordsProcessed: 5, UploadTime: time.Now()}},
		op{kind: opRemoveSource, source: "x.csv"},
	)
	if err := store.Apply(batch); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if n, _ := store.EntryCount(ctx, "x.csv"); n != 0 {
		t.Errorf("x.csv entries = %d, want 0", n)
	}
	if n, _ := store.EntryCount(ctx, ""); n != 2 {
		t.Errorf("total entries = %d, want 2", n)
	}
	sum, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Files != 0 {
		t.Errorf("files = %d, want 0", sum.Files)
	}
}

func TestApply_DuplicateActivityIgnored(t *testing.T) {
	store := newTestStore(t)
	a := model.ActivityEntry{ID: "same", Time: time.Now(), Event: "e", Level: model.LevelInfo}
	if err := store.Apply([]op{{kind: opActivity, activity: a}, {kind: opActivity, activity: a}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got, err := store.RecentActivity(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentActivity: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("activity rows = %d, want 1", len(got))
	}
}

func TestRecentActivity_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var batch []op
	for i := 0; i < 5; i++ {
		batch = append(batch, op{kind: opActivity, activity: model.ActivityEntry{
			ID: fmt.Sprint(i), Time: base.Add(time.Duration(i) * time.Minute), Event: "e", Level: model.LevelInfo,
		}})
	}
	if err := store.Apply(batch); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, err := store.RecentActivity(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentActivity: %v", err)
	}
	if len(got) != 2 || got[0].ID != "4" || got[1].ID != "3" {
		t.Fatalf("got %+v", got)
	}
}

func TestSummary_Empty(t *testing.T) {
	store := newTestStore(t)
	sum, err := store.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Entries != 0 || sum.OldestEntry != "" || len(sum.SourceFiles) != 0 {
		t.Fatalf("empty summary = %+v", sum)
	}
}
