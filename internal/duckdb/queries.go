package duckdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nexumobscura/nexum/internal/model"
)

// FileCount is the archived row count for one source file.
type FileCount struct {
	SourceFile string  `json:"sourceFile"`
	Entries    int64   `json:"entries"`
	AvgScore   float64 `json:"avgSuspicionScore"`
	HighRisk   int64   `json:"highRisk"`
}

// Summary describes the archive contents.
type Summary struct {
	Entries      int64       `json:"entries"`
	Files        int64       `json:"files"`
	Activity     int64       `json:"activity"`
	OldestEntry  string      `json:"oldestEntry"`
	NewestEntry  string      `json:"newestEntry"`
	SourceFiles  []FileCount `json:"sourceFiles"`
	DatabasePath string      `json:"databasePath"`
}

// Summary returns row counts and per-file breakdown.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Summary{SourceFiles: []FileCount{}, DatabasePath: s.dbPath}
	var oldest, newest sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM log_entries),
		(SELECT COUNT(*) FROM uploaded_files),
		(SELECT COUNT(*) FROM activity_log),
		(SELECT MIN(processed_at) FROM log_entries),
		(SELECT MAX(processed_at) FROM log_entries)`).
		Scan(&out.Entries, &out.Files, &out.Activity, &oldest, &newest)
	if err != nil {
		return Summary{}, fmt.Errorf("archive summary: %w", err)
	}
	if oldest.Valid {
		out.OldestEntry = model.FormatISO(oldest.Time)
	}
	if newest.Valid {
		out.NewestEntry = model.FormatISO(newest.Time)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT source_file, COUNT(*), AVG(suspicion_score),
			COUNT(*) FILTER (WHERE risk_level = 'High')
		FROM log_entries
		GROUP BY source_file
		ORDER BY COUNT(*) DESC, source_file`)
	if err != nil {
		return Summary{}, fmt.Errorf("archive per-file counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var fc FileCount
		if err := rows.Scan(&fc.SourceFile, &fc.Entries, &fc.AvgScore, &fc.HighRisk); err != nil {
			return Summary{}, fmt.Errorf("scan per-file counts: %w", err)
		}
		out.SourceFiles = append(out.SourceFiles, fc)
	}
	return out, rows.Err()
}

// EntryCount returns archived entries for sourceFile, or all entries when
// sourceFile is empty.
func (s *Store) EntryCount(ctx context.Context, sourceFile string) (int64, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `SELECT COUNT(*) FROM log_entries`
	var args []any
	if sourceFile != "" {
		q += ` WHERE source_file = ?`
		args = append(args, sourceFile)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// RecentActivity returns up to limit activity entries, newest first.
func (s *Store) RecentActivity(ctx context.Context, limit int) ([]model.ActivityEntry, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT activity_id, time, event, level, COALESCE(source, '') FROM activity_log ORDER BY time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	defer rows.Close()

	out := []model.ActivityEntry{}
	for rows.Next() {
		var a model.ActivityEntry
		if err := rows.Scan(&a.ID, &a.Time, &a.Event, &a.Level, &a.Source); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
