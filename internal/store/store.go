// Package store holds the process-wide log entry sequence together with the
// aggregates derived from it.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nexumobscura/nexum/internal/entropy"
	"github.com/nexumobscura/nexum/internal/model"
)

// ErrFileNotFound is returned when deleting an upload that was never recorded.
var ErrFileNotFound = errors.New("file not found")

// Activity caps per call site. They differ on purpose; each bounds the log
// at the moment its caller appends.
const (
	ActivityCapSharedLoad = 100
	ActivityCapUpload     = 20
	ActivityCapDelete     = 10
	DashboardActivity     = 10
)

// TimelineCap bounds the rebuilt event timeline.
const TimelineCap = 50

// timelineThreshold is the score above which an entry becomes a timeline event.
const timelineThreshold = 60

// Store is the single in-memory log store. Entries are never modified after
// insertion; they leave only by source-file removal or cap eviction.
type Store struct {
	mu           sync.RWMutex
	entries      []model.LogEntry
	stats        model.Stats
	files        []model.UploadedFile
	activity     []model.ActivityEntry // newest first
	timeline     model.Timeline
	sharedLoaded bool
	generation   uint64
	clock        model.Clock
}

// New creates an empty store. A nil clock defaults to time.Now.
func New(clock model.Clock) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{clock: clock}
}

// Append adds entries at the tail without any cap.
func (s *Store) Append(entries []model.LogEntry) {
	if len(entries) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	s.generation++
}

// AppendCapped adds entries and then evicts the oldest until at most max
// remain. It returns the number of evicted entries.
func (s *Store) AppendCapped(entries []model.LogEntry, max int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	s.generation++
	if max <= 0 || len(s.entries) <= max {
		return 0
	}
	evicted := len(s.entries) - max
	kept := make([]model.LogEntry, max)
	copy(kept, s.entries[evicted:])
	s.entries = kept
	return evicted
}

// RemoveSourceFile drops every entry whose SourceFile equals name.
func (s *Store) RemoveSourceFile(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeSourceFileLocked(name)
}

func (s *Store) removeSourceFileLocked(name string) int {
	kept := s.entries[:0:0]
	for _, e := range s.entries {
		if e.SourceFile != name {
			kept = append(kept, e)
		}
	}
	removed := len(s.entries) - len(kept)
	if removed > 0 {
		s.entries = kept
		s.generation++
	}
	return removed
}

// DeleteFile removes the upload record(s) named filename and cascades to
// their entries. Stats are recomputed before returning.
func (s *Store) DeleteFile(filename string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	files := s.files[:0:0]
	for _, f := range s.files {
		if f.Filename == filename {
			found = true
			continue
		}
		files = append(files, f)
	}
	if !found {
		return 0, fmt.Errorf("delete %q: %w", filename, ErrFileNotFound)
	}
	s.files = files
	removed := s.removeSourceFileLocked(filename)
	s.refreshLocked()
	return removed, nil
}

// Refresh recomputes stats and rebuilds the event timeline from the current
// sequence. Safe to call repeatedly.
func (s *Store) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
}

func (s *Store) refreshLocked() {
	s.stats = ComputeStats(s.entries)
	s.timeline = model.Timeline{Events: buildTimelineEvents(s.entries)}
	s.generation++
}

// Stats returns the maintained aggregate record.
func (s *Store) Stats() model.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Snapshot returns a copy of the entry sequence in insertion order.
func (s *Store) Snapshot() []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Recent returns up to n of the newest entries, oldest first.
func (s *Store) Recent(n int) []model.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if n >= 0 && len(s.entries) > n {
		start = len(s.entries) - n
	}
	out := make([]model.LogEntry, len(s.entries)-start)
	copy(out, s.entries[start:])
	return out
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Generation changes whenever the entry sequence or its aggregates change.
// Derived-view caches key on it.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// AddFile records an upload.
func (s *Store) AddFile(f model.UploadedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, f)
}

// Files returns the upload records in upload order.
func (s *Store) Files() []model.UploadedFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.UploadedFile, len(s.files))
	copy(out, s.files)
	return out
}

// LogActivity prepends an activity entry and trims the log to limit.
func (s *Store) LogActivity(event, level, source string, limit int) model.ActivityEntry {
	a := model.ActivityEntry{
		ID:     uuid.NewString(),
		Time:   s.clock(),
		Event:  event,
		Level:  level,
		Source: source,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append([]model.ActivityEntry{a}, s.activity...)
	if limit > 0 && len(s.activity) > limit {
		s.activity = s.activity[:limit]
	}
	return a
}

// Activity returns up to n of the newest activity entries, newest first.
func (s *Store) Activity(n int) []model.ActivityEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n < 0 || n > len(s.activity) {
		n = len(s.activity)
	}
	out := make([]model.ActivityEntry, n)
	copy(out, s.activity[:n])
	return out
}

// Timeline returns the current event timeline.
func (s *Store) Timeline() model.Timeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeline
}

// SetSharedLoaded marks that the bundled sample files finished loading.
func (s *Store) SetSharedLoaded(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sharedLoaded = v
}

// SharedLoaded reports whether the bundled sample files were loaded.
func (s *Store) SharedLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sharedLoaded
}

func buildTimelineEvents(entries []model.LogEntry) []model.TimelineEvent {
	events := make([]model.TimelineEvent, 0)
	for i := len(entries) - 1; i >= 0 && len(events) < TimelineCap; i-- {
		e := &entries[i]
		if e.SuspicionScore <= timelineThreshold {
			continue
		}
		when := e.At
		if when.IsZero() {
			when = e.ProcessedAt
		}
		actor := e.SourceIP
		if actor == "" {
			actor = e.AParty
		}
		if actor == "" {
			actor = e.ID
		}
		events = append(events, model.TimelineEvent{
			Time:     model.FormatISO(when),
			Event:    fmt.Sprintf("Suspicious activity from %s", actor),
			Type:     riskType(e.RiskLevel),
			Score:    e.SuspicionScore,
			SourceIP: e.SourceIP,
			EntryID:  e.ID,
		})
	}
	return events
}

func riskType(r model.RiskLevel) string {
	switch r {
	case model.RiskHigh:
		return "high"
	case model.RiskMedium:
		return "medium"
	default:
		return "low"
	}
}

// SyntheticTimeline builds the six fixed four-hour buckets served when no
// event timeline exists yet. Counts are random.
func SyntheticTimeline(src entropy.Source) model.Timeline {
	buckets := make([]model.TimelineBucket, 0, 6)
	for h := 0; h < 24; h += 4 {
		buckets = append(buckets, model.TimelineBucket{
			Time:       fmt.Sprintf("%02d:00", h),
			Events:     src.IntN(50),
			Suspicious: src.IntN(10),
		})
	}
	return model.Timeline{Buckets: buckets}
}
