// Package ingest turns CSV files into enriched log entries and feeds them
// into the in-memory store.
package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/nexumobscura/nexum/internal/entropy"
	"github.com/nexumobscura/nexum/internal/model"
	"github.com/nexumobscura/nexum/internal/store"
)

// sampleSize is how many enriched rows an upload response echoes back.
const sampleSize = 10

// Archive receives a durable copy of store mutations. Implementations must not block.
type Archive interface {
	AddEntries(entries []model.LogEntry)
	AddFile(f model.UploadedFile)
	AddActivity(a model.ActivityEntry)
	RemoveSourceFile(name string)
}

// Publisher forwards activity entries to an external bus.
type Publisher interface {
	Publish(a model.ActivityEntry)
}

// Recorder receives ingestion counters.
type Recorder interface {
	RowsIngested(source string, n int)
	RowErrors(n int)
	UploadFinished(ok bool)
	FileDeleted()
	StoreSize(n int)
}

// SharedConfig locates the bundled sample files.
type SharedConfig struct {
	Dirs            []string
	BaseFile        string
	EnrichedFile    string
	FallbackEntries int
}

// Config wires a Service.
type Config struct {
	Store      *store.Store
	Random     entropy.Source
	Clock      model.Clock
	MaxEntries int // upload-path store cap
	Archive    Archive
	Publisher  Publisher
	Recorder   Recorder
}

// UploadResult summarizes one processed upload.
type UploadResult struct {
	Processed int
	Errors    int
	Filename  string
	FileSize  int64
	Sample    []model.LogEntry
	Analysis  PlaceholderAnalysis
}

// Service coordinates parsing, the store and the optional side channels.
type Service struct {
	store      *store.Store
	loader     *Loader
	rnd        entropy.Source
	clock      model.Clock
	maxEntries int
	archive    Archive
	publisher  Publisher
	recorder   Recorder
}

// NewService creates an ingest service.
func NewService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Random == nil {
		cfg.Random = entropy.New(0)
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = model.DefaultMaxUploadEntries
	}
	return &Service{
		store:      cfg.Store,
		loader:     NewLoader(cfg.Random, cfg.Clock),
		rnd:        cfg.Random,
		clock:      cfg.Clock,
		maxEntries: cfg.MaxEntries,
		archive:    cfg.Archive,
		publisher:  cfg.Publisher,
		recorder:   cfg.Recorder,
	}
}

// Store returns the backing store.
func (s *Service) Store() *store.Store { return s.store }

// Random returns the service's random source.
func (s *Service) Random() entropy.Source { return s.rnd }

// LoadShared loads the base and enriched sample files from the first
// directory that holds each. When neither is found it synthesizes fallback
// entries instead of failing.
func (s *Service) LoadShared(ctx context.Context, cfg SharedConfig) error {
	dirs := cfg.Dirs
	if len(dirs) == 0 {
		dirs = DefaultSharedDirs
	}

	loaded := 0
	for _, name := range []string{cfg.BaseFile, cfg.EnrichedFile} {
		if name == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		path, ok := LocateShared(dirs, name)
		if !ok {
			log.Printf("ingest: shared file %s not found in %v", name, dirs)
			continue
		}
		if _, err := s.LoadFile(path, name); err != nil {
			log.Printf("ingest: loading %s: %v", path, err)
			continue
		}
		loaded++
	}

	if loaded == 0 {
		n := cfg.FallbackEntries
		if n <= 0 {
			n = model.DefaultFallbackEntries
		}
		entries := GenerateFallback(s.rnd, s.clock, n)
		s.store.Append(entries)
		s.store.Refresh()
		s.archiveEntries(entries)
		s.recordRows(FallbackSource, len(entries))
		s.logActivity(fmt.Sprintf("No shared data found, generated %d fallback records", n),
			model.LevelWarning, FallbackSource, store.ActivityCapSharedLoad)
	}

	s.store.SetSharedLoaded(true)
	return nil
}

// LoadFile parses one bundled CSV with threat-flag scoring and appends its
// rows to the store as they are parsed.
func (s *Service) LoadFile(path, tag string) (ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{}, fmt.Errorf("open shared file: %w", err)
	}
	defer f.Close()

	res, err := s.loader.Parse(f, tag, ScoreShared, func(chunk []model.LogEntry) {
		s.store.Append(chunk)
		s.archiveEntries(chunk)
	})
	s.store.Refresh()
	s.recordRows(tag, res.Processed)
	s.recordErrors(res.Errors)
	if err != nil {
		s.logActivity(fmt.Sprintf("Failed loading %s after %d records: %v", tag, res.Processed, err),
			model.LevelError, tag, store.ActivityCapSharedLoad)
		return res, err
	}

	s.logActivity(fmt.Sprintf("Loaded %d records from %s", res.Processed, tag),
		model.LevelSuccess, tag, store.ActivityCapSharedLoad)
	zlog.Info().Str("file", tag).Int("processed", res.Processed).Int("errors", res.Errors).Msg("shared file loaded")
	return res, nil
}

// Upload parses an uploaded CSV at path with random scoring, appends it to
// the store under the entry cap and removes path when done, whether or not
// parsing succeeded. Rows parsed before a stream error are kept.
func (s *Service) Upload(path, filename string, size int64) (UploadResult, error) {
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("ingest: removing temp upload %s: %v", filepath.Base(path), err)
		}
	}()

	result := UploadResult{Filename: filename, FileSize: size}

	f, err := os.Open(path)
	if err != nil {
		s.finishUpload(false)
		return result, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	res, perr := s.loader.Parse(f, filename, ScoreUpload, func(chunk []model.LogEntry) {
		if room := sampleSize - len(result.Sample); room > 0 {
			if room > len(chunk) {
				room = len(chunk)
			}
			result.Sample = append(result.Sample, chunk[:room]...)
		}
		s.store.AppendCapped(chunk, s.maxEntries)
		s.archiveEntries(chunk)
	})
	result.Processed = res.Processed
	result.Errors = res.Errors
	s.recordRows(filename, res.Processed)
	s.recordErrors(res.Errors)

	if perr != nil {
		s.store.Refresh()
		s.logActivity(fmt.Sprintf("Upload %s failed after %d records: %v", filename, res.Processed, perr),
			model.LevelError, filename, store.ActivityCapUpload)
		s.finishUpload(false)
		return result, perr
	}

	rec := model.UploadedFile{
		Filename:         filename,
		RecordsProcessed: res.Processed,
		UploadTime:       s.clock(),
		Size:             size,
	}
	s.store.AddFile(rec)
	s.store.Refresh()
	if s.archive != nil {
		s.archive.AddFile(rec)
	}
	s.logActivity(fmt.Sprintf("Uploaded %s: %d records processed, %d errors", filename, res.Processed, res.Errors),
		model.LevelSuccess, filename, store.ActivityCapUpload)

	result.Analysis = NewPlaceholderAnalysis(s.rnd, res.Processed)
	if result.Sample == nil {
		result.Sample = []model.LogEntry{}
	}
	s.finishUpload(true)
	zlog.Info().Str("file", filename).Int("processed", res.Processed).Int("errors", res.Errors).
		Int("stored", s.store.Len()).Msg("upload processed")
	return result, nil
}

// DeleteFile removes an uploaded file record and all entries sourced from it.
func (s *Service) DeleteFile(filename string) (int, error) {
	removed, err := s.store.DeleteFile(filename)
	if err != nil {
		return 0, err
	}
	if s.archive != nil {
		s.archive.RemoveSourceFile(filename)
	}
	s.logActivity(fmt.Sprintf("Deleted %s and %d associated records", filename, removed),
		model.LevelWarning, filename, store.ActivityCapDelete)
	if s.recorder != nil {
		s.recorder.FileDeleted()
		s.recorder.StoreSize(s.store.Len())
	}
	return removed, nil
}

func (s *Service) logActivity(event, level, source string, limit int) {
	a := s.store.LogActivity(event, level, source, limit)
	if s.archive != nil {
		s.archive.AddActivity(a)
	}
	if s.publisher != nil {
		s.publisher.Publish(a)
	}
}

func (s *Service) archiveEntries(entries []model.LogEntry) {
	if s.archive != nil {
		s.archive.AddEntries(entries)
	}
}

func (s *Service) recordRows(source string, n int) {
	if s.recorder != nil {
		s.recorder.RowsIngested(source, n)
		s.recorder.StoreSize(s.store.Len())
	}
}

func (s *Service) recordErrors(n int) {
	if s.recorder != nil && n > 0 {
		s.recorder.RowErrors(n)
	}
}

func (s *Service) finishUpload(ok bool) {
	if s.recorder != nil {
		s.recorder.UploadFinished(ok)
	}
}
