package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nexumobscura/nexum/internal/entropy"
	"github.com/nexumobscura/nexum/internal/model"
	"github.com/nexumobscura/nexum/internal/timestamp"
)

// ScoreMode selects how suspicion and risk are assigned to parsed rows.
type ScoreMode int

const (
	// ScoreShared correlates the score with threat_flag and action.
	ScoreShared ScoreMode = iota
	// ScoreUpload draws score and risk independently at random.
	ScoreUpload
)

// chunkSize is how many enriched rows are handed to emit at a time.
const chunkSize = 256

// ParseResult counts the rows of one file.
type ParseResult struct {
	Processed int
	Errors    int
}

// Loader stream-parses CSV input into enriched log entries.
type Loader struct {
	rnd   entropy.Source
	clock model.Clock
}

// NewLoader creates a loader with the given random source and clock.
func NewLoader(rnd entropy.Source, clock model.Clock) *Loader {
	if clock == nil {
		clock = time.Now
	}
	return &Loader{rnd: rnd, clock: clock}
}

// Parse reads CSV rows from r and calls emit with chunks of enriched
// entries as they become available. Malformed rows are counted and skipped.
// A stream-level error stops parsing; rows already emitted stay emitted.
func (l *Loader) Parse(r io.Reader, sourceFile string, mode ScoreMode, emit func([]model.LogEntry)) (ParseResult, error) {
	var res ParseResult

	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = h
	}

	chunk := make([]model.LogEntry, 0, chunkSize)
	flush := func() {
		if len(chunk) == 0 {
			return
		}
		emit(chunk)
		chunk = make([]model.LogEntry, 0, chunkSize)
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Errors++
				continue
			}
			flush()
			return res, fmt.Errorf("parse %s: %w", sourceFile, err)
		}
		if blankRecord(record) {
			continue
		}

		res.Processed++
		chunk = append(chunk, l.enrich(header, record, sourceFile, res.Processed, mode))
		if len(chunk) >= chunkSize {
			flush()
		}
	}
	flush()
	return res, nil
}

func (l *Loader) enrich(header, record []string, sourceFile string, ordinal int, mode ScoreMode) model.LogEntry {
	cols := make(map[string]string, len(header))
	order := make([]string, 0, len(header))
	for i, h := range header {
		if _, dup := cols[h]; !dup {
			order = append(order, h)
		}
		cols[h] = record[i]
	}

	known, anomaly := resolveKnown(cols)
	e := model.LogEntry{
		KnownFields: known,
		ID:          fmt.Sprintf("%s-%d", sourceFile, ordinal),
		SourceFile:  sourceFile,
		ProcessedAt: l.clock(),
		AnomalyType: anomaly,
		Columns:     cols,
		Order:       order,
	}
	if at, ok := timestamp.Parse(known.Timestamp); ok {
		e.At = at
	}

	switch mode {
	case ScoreUpload:
		e.SuspicionScore = l.rnd.IntN(100)
		e.RiskLevel = entropy.Pick(l.rnd, []model.RiskLevel{model.RiskLow, model.RiskMedium, model.RiskHigh})
	default:
		e.SuspicionScore, e.RiskLevel = l.scoreShared(known)
	}
	return e
}

func (l *Loader) scoreShared(k model.KnownFields) (int, model.RiskLevel) {
	if k.ThreatFlag == model.ThreatSuspicious {
		return 70 + l.rnd.IntN(30), model.RiskHigh
	}
	score := l.rnd.IntN(40)
	if blockingActions[k.Action] {
		return score, model.RiskMedium
	}
	return score, model.RiskLow
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
