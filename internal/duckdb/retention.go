package duckdb

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// DeleteBefore removes entries processed and activity recorded before cutoff.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM log_entries WHERE processed_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("expire entries: %w", err)
	}
	entries, _ := res.RowsAffected()

	res, err = s.db.ExecContext(ctx, `DELETE FROM activity_log WHERE time < ?`, cutoff.UTC())
	if err != nil {
		return entries, fmt.Errorf("expire activity: %w", err)
	}
	activity, _ := res.RowsAffected()
	return entries + activity, nil
}

// RetentionCleaner expires archive rows older than the retention window,
// once at start and then hourly.
type RetentionCleaner struct {
	store    *Store
	days     int
	now      func() time.Time
	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRetentionCleaner starts a cleaner. It returns nil when days <= 0.
func NewRetentionCleaner(store *Store, days int, now func() time.Time) *RetentionCleaner {
	if days <= 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	rc := &RetentionCleaner{
		store:    store,
		days:     days,
		now:      now,
		interval: time.Hour,
		done:     make(chan struct{}),
	}

	rc.Cleanup()

	rc.wg.Add(1)
	go rc.loop()
	return rc
}

func (rc *RetentionCleaner) loop() {
	defer rc.wg.Done()
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rc.Cleanup()
		case <-rc.done:
			return
		}
	}
}

// Cleanup runs one expiry pass and returns the rows removed.
func (rc *RetentionCleaner) Cleanup() int64 {
	cutoff := rc.now().Add(-time.Duration(rc.days) * 24 * time.Hour)
	n, err := rc.store.DeleteBefore(context.Background(), cutoff)
	if err != nil {
		log.Printf("duckdb: retention cleanup: %v", err)
		return 0
	}
	if n > 0 {
		log.Printf("duckdb: retention removed %d rows older than %d days", n, rc.days)
	}
	return n
}

// Stop halts the cleaner. Safe on a nil cleaner.
func (rc *RetentionCleaner) Stop() {
	if rc == nil {
		return
	}
	rc.stopOnce.Do(func() {
		close(rc.done)
		rc.wg.Wait()
	})
}
