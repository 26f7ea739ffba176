package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/nexumobscura/nexum/internal/backup"
	"github.com/nexumobscura/nexum/internal/duckdb"
	"github.com/nexumobscura/nexum/internal/entropy"
	"github.com/nexumobscura/nexum/internal/events"
	"github.com/nexumobscura/nexum/internal/httpserver"
	"github.com/nexumobscura/nexum/internal/ingest"
	"github.com/nexumobscura/nexum/internal/logging"
	"github.com/nexumobscura/nexum/internal/metrics"
	"github.com/nexumobscura/nexum/internal/store"
)

// runServer loads the shared data set and serves the HTTP API until signalled.
func runServer(cfg appConfig) error {
	logging.Init(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "nexum"})
	gin.SetMode(gin.ReleaseMode)

	// Set up context and signal handling before anything starts goroutines.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	svcCfg := ingest.Config{
		Store:      store.New(time.Now),
		Random:     entropy.New(cfg.RandomSeed),
		Clock:      time.Now,
		MaxEntries: cfg.MaxUploadEntries,
	}
	if m != nil {
		svcCfg.Recorder = m
	}

	// Durable archive: DuckDB store behind a batching insert buffer.
	var archive *duckdb.Store
	if cfg.ArchiveEnabled {
		var err error
		archive, err = duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
		if err != nil {
			return fmt.Errorf("failed to initialize DuckDB: %w", err)
		}
		defer archive.Close()

		insertBuffer := duckdb.NewInsertBuffer(archive, duckdb.InsertBufferConfig{
			BatchSize:      cfg.InsertBatchSize,
			FlushInterval:  cfg.InsertFlushInterval,
			FlushQueueSize: cfg.InsertFlushQueue,
			OnDrop: func() {
				if m != nil {
					m.ArchiveDrop()
				}
			},
		})
		defer insertBuffer.Stop()
		svcCfg.Archive = insertBuffer

		// Start retention cleaner for automatic archive expiry
		retentionCleaner := duckdb.NewRetentionCleaner(archive, cfg.ArchiveRetention, time.Now)
		defer retentionCleaner.Stop()

		backupManager, err := backup.NewManager(archive, backup.Config{
			Enabled:        cfg.BackupEnabled,
			Interval:       cfg.BackupInterval,
			LocalDir:       cfg.BackupLocalDir,
			KeepLast:       cfg.BackupKeepLast,
			BucketURL:      cfg.BackupBucketURL,
			S3Endpoint:     cfg.BackupS3Endpoint,
			S3Region:       cfg.BackupS3Region,
			S3AccessKey:    cfg.BackupS3AccessKey,
			S3SecretKey:    cfg.BackupS3SecretKey,
			S3SessionToken: cfg.BackupS3SessionToken,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize backups: %w", err)
		}
		defer backupManager.Stop()
	} else if cfg.BackupEnabled {
		log.Printf("server: backups need the archive, ignoring backup-enabled")
	}

	// Activity events go to NATS when configured.
	var publisher ingest.Publisher = events.Noop{}
	if cfg.NATSURL != "" {
		p, err := events.Connect(ctx, cfg.NATSURL, cfg.NATSSubject, func() {
			if m != nil {
				m.PublishFailed()
			}
		})
		if err != nil {
			log.Printf("server: nats unavailable, events disabled: %v", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}
	svcCfg.Publisher = publisher

	svc := ingest.NewService(svcCfg)

	srvCfg := httpserver.Config{
		Addr:             cfg.APIAddr,
		UploadDir:        cfg.UploadDir,
		MaxUploadSize:    cfg.MaxUploadSize,
		MaxUploadEntries: cfg.MaxUploadEntries,
		ViewCacheSize:    cfg.ViewCacheSize,
		Clock:            time.Now,
		Metrics:          m,
	}
	if archive != nil {
		srvCfg.Archive = archive
	}
	apiServer, err := httpserver.NewServer(srvCfg, svc)
	if err != nil {
		return fmt.Errorf("failed to build API server: %w", err)
	}
	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	defer apiServer.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	printStartupBanner(cfg, apiServer.Addr())

	g, gctx := errgroup.WithContext(ctx)

	// Requests are served while the shared files load and may see a
	// partially loaded store.
	g.Go(func() error {
		start := time.Now()
		if err := svc.LoadShared(gctx, ingest.SharedConfig{
			Dirs:            cfg.SharedDataDirs,
			BaseFile:        cfg.SharedBaseFile,
			EnrichedFile:    cfg.SharedEnrichedFile,
			FallbackEntries: cfg.FallbackEntries,
		}); err != nil && gctx.Err() == nil {
			log.Printf("server: shared data load failed: %v", err)
		}
		zlog.Info().Int("entries", svc.Store().Len()).Dur("elapsed", time.Since(start)).Msg("startup load finished")
		return nil
	})

	// Wait for context cancellation (from signal handler) in the errgroup
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("server: errgroup exited with error: %v", err)
	}

	signal.Stop(sigCh)
	return nil
}

func printStartupBanner(cfg appConfig, apiAddr string) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╔╗╔╔═╗═╗ ╦╦ ╦╔╦╗
    ║║║║╣ ╔╩╦╝║ ║║║║
    ╝╚╝╚═╝╩ ╚═╚═╝╩ ╩`)

	row := func(on bool, label, value string) string {
		mark := dot
		if on {
			mark = check
		}
		return fmt.Sprintf("    %s  %-14s %s", mark, label, value)
	}

	separator := dim.Render("    ─────────────────────────────────")
	lines := []string{"", logo, "    " + dim.Render("v"+version), "", separator, ""}

	lines = append(lines, bold.Render("    Gateway"), "")
	lines = append(lines, row(true, "HTTP API", cyan.Render("http://"+apiAddr+"/api")))
	if cfg.MetricsEnabled {
		lines = append(lines, row(true, "Metrics", cyan.Render("http://"+apiAddr+"/metrics")))
	} else {
		lines = append(lines, row(false, "Metrics", dim.Render("disabled")))
	}
	if cfg.NATSURL != "" {
		lines = append(lines, row(true, "Events", cyan.Render(cfg.NATSSubject)))
	} else {
		lines = append(lines, row(false, "Events", dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"), "")
	lines = append(lines, row(true, "Uploads", dim.Render(shortenPath(cfg.UploadDir))))
	if cfg.ArchiveEnabled {
		lines = append(lines, row(true, "Archive", dim.Render(shortenPath(cfg.DBPath))))
	} else {
		lines = append(lines, row(false, "Archive", dim.Render("disabled")))
	}
	if cfg.ArchiveEnabled && cfg.BackupEnabled {
		lines = append(lines, row(true, "Snapshots", dim.Render(shortenPath(cfg.BackupLocalDir))))
	} else {
		lines = append(lines, row(false, "Snapshots", dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, row(true, "Config File", dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, row(false, "Config File", dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
