package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/goccy/go-json"

	"github.com/nexumobscura/nexum/internal/model"
)

type opKind uint8

const (
	opEntry opKind = iota + 1
	opFile
	opActivity
	opRemoveSource
)

// op is one archived mutation. Ops are applied in the order they were
// queued so a delete never overtakes the inserts it targets.
type op struct {
	kind     opKind
	entry    model.LogEntry
	file     model.UploadedFile
	activity model.ActivityEntry
	source   string
}

// Apply writes a batch of ops in a single transaction. If the batch fails it
// is retried op by op so one bad row does not drop its neighbours.
func (s *Store) Apply(batch []op) error {
	if len(batch) == 0 {
		return nil
	}
	ctx, cancel := s.queryContext(context.Background())
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.applyTx(ctx, batch); err == nil {
		return nil
	}

	failed := 0
	for i := range batch {
		if err := s.applyTx(ctx, batch[i:i+1]); err != nil {
			failed++
			log.Printf("duckdb: dropping archive op kind=%d: %v", batch[i].kind, err)
		}
	}
	if failed > 0 {
		log.Printf("duckdb: batch partially failed, %d/%d ops dropped", failed, len(batch))
	}
	return nil
}

func (s *Store) applyTx(ctx context.Context, batch []op) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var entryStmt *sql.Stmt
	for i := range batch {
		o := &batch[i]
		switch o.kind {
		case opEntry:
			if entryStmt == nil {
				entryStmt, err = tx.PrepareContext(ctx, `INSERT INTO log_entries (
					entry_id, source_file, processed_at, event_time, source_ip, dest_ip, protocol, action,
					bytes, threat_flag, city, a_party, b_party, duration, cell_id,
					suspicion_score, risk_level, anomaly_type, columns
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
				if err != nil {
					return err
				}
				defer entryStmt.Close()
			}
			if err := insertEntry(ctx, entryStmt, &o.entry); err != nil {
				return err
			}
		case opFile:
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO uploaded_files (filename, records_processed, size, upload_time) VALUES (?, ?, ?, ?)`,
				o.file.Filename, o.file.RecordsProcessed, o.file.Size, o.file.UploadTime.UTC(),
			); err != nil {
				return fmt.Errorf("file insert: %w", err)
			}
		case opActivity:
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO activity_log (activity_id, time, event, level, source) VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
				o.activity.ID, o.activity.Time.UTC(), o.activity.Event, o.activity.Level, o.activity.Source,
			); err != nil {
				return fmt.Errorf("activity insert: %w", err)
			}
		case opRemoveSource:
			if _, err := tx.ExecContext(ctx, `DELETE FROM log_entries WHERE source_file = ?`, o.source); err != nil {
				return fmt.Errorf("remove entries for %s: %w", o.source, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM uploaded_files WHERE filename = ?`, o.source); err != nil {
				return fmt.Errorf("remove file record %s: %w", o.source, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func insertEntry(ctx context.Context, stmt *sql.Stmt, e *model.LogEntry) error {
	cols := []byte("{}")
	if len(e.Columns) > 0 {
		data, err := json.Marshal(e.Columns)
		if err != nil {
			log.Printf("duckdb: encode columns for %s, storing empty: %v", e.ID, err)
		} else {
			cols = data
		}
	}
	var eventTime any
	if !e.At.IsZero() {
		eventTime = e.At.UTC()
	}
	_, err := stmt.ExecContext(ctx,
		e.ID, e.SourceFile, e.ProcessedAt.UTC(), eventTime,
		e.SourceIP, e.DestIP, e.Protocol, e.Action,
		e.BytesValue(), e.ThreatFlag, e.City, e.AParty, e.BParty, e.DurationSeconds(), e.CellID,
		e.SuspicionScore, string(e.RiskLevel), e.AnomalyType, string(cols),
	)
	if err != nil {
		return fmt.Errorf("entry insert %s: %w", e.ID, err)
	}
	return nil
}
