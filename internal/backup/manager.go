// Package backup snapshots the DuckDB archive on a schedule, gzips each
// snapshot, keeps the newest few locally and optionally uploads them to S3.
package backup

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
)

const (
	defaultInterval = 6 * time.Hour
	defaultKeepLast = 24
	filePrefix      = "nexum-archive-"
	fileSuffix      = ".duckdb.gz"
)

// Manager runs the backup loop.
type Manager struct {
	store    Snapshotter
	cfg      Config
	uploader Uploader
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager validates cfg, takes a first snapshot and starts the loop.
// It returns nil when backups are disabled.
func NewManager(store Snapshotter, cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if store == nil {
		return nil, fmt.Errorf("backup: nil snapshotter")
	}
	if strings.TrimSpace(store.DBPath()) == "" {
		return nil, fmt.Errorf("backup: db-path is empty (in-memory archive)")
	}
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, fmt.Errorf("backup: local-dir is required when backup is enabled")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if err := os.MkdirAll(cfg.LocalDir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create local-dir: %w", err)
	}

	m := &Manager{store: store, cfg: cfg, now: time.Now}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	if strings.TrimSpace(cfg.BucketURL) != "" {
		u, err := NewS3Uploader(m.ctx, S3Config{
			BucketURL:    cfg.BucketURL,
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			SessionToken: cfg.S3SessionToken,
		})
		if err != nil {
			m.cancel()
			return nil, fmt.Errorf("backup: init s3 uploader: %w", err)
		}
		m.uploader = u
	}

	if err := m.RunOnce(m.ctx); err != nil {
		log.Printf("backup: startup snapshot failed: %v", err)
	}

	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.RunOnce(m.ctx); err != nil {
				log.Printf("backup: periodic snapshot failed: %v", err)
			}
		case <-m.ctx.Done():
			return
		}
	}
}

// RunOnce snapshots, compresses, uploads when configured and prunes old
// local copies. It returns the path of the compressed snapshot.
func (m *Manager) RunOnce(ctx context.Context) error {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	stamp := now().UTC().Format("20060102-150405.000")
	final := filepath.Join(m.cfg.LocalDir, filePrefix+stamp+fileSuffix)
	raw := strings.TrimSuffix(final, ".gz") + ".raw"

	if err := m.store.SnapshotTo(raw); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer os.Remove(raw)

	if err := gzipFile(raw, final); err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	log.Printf("backup: created snapshot %s", final)

	if m.uploader != nil {
		if err := m.uploader.UploadFile(ctx, final); err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		log.Printf("backup: uploaded snapshot %s", filepath.Base(final))
	}

	if err := pruneLocalBackups(m.cfg.LocalDir, m.cfg.KeepLast); err != nil {
		return fmt.Errorf("prune local backups: %w", err)
	}
	return nil
}

// Stop cancels any in-flight upload and ends the loop. Safe on nil.
func (m *Manager) Stop() {
	if m == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
}

func gzipFile(srcPath, dstPath string) (err error) {
	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dstPath)
		}
	}()

	zw, err := gzip.NewWriterLevel(out, gzip.BestSpeed)
	if err != nil {
		return err
	}
	zw.Name = strings.TrimSuffix(filepath.Base(dstPath), ".gz")
	if _, err = io.Copy(zw, in); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func pruneLocalBackups(localDir string, keepLast int) error {
	if keepLast <= 0 {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(localDir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}
	// The timestamp in the name sorts chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	for _, old := range matches[keepLast:] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
