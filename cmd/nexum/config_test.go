package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := loadConfig(filepath.Join(home, "missing.yml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.APIAddr != "127.0.0.1:5000" {
		t.Errorf("APIAddr = %q", cfg.APIAddr)
	}
	if cfg.MaxUploadSize != 50<<20 || cfg.MaxUploadEntries != 1000 {
		t.Errorf("upload limits = %d/%d", cfg.MaxUploadSize, cfg.MaxUploadEntries)
	}
	if want := filepath.Join(home, ".local", "share", "nexum", "nexum.duckdb"); cfg.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, want)
	}
	if len(cfg.SharedDataDirs) == 0 || cfg.SharedBaseFile != "ipdr_base.csv" {
		t.Errorf("shared = %v %q", cfg.SharedDataDirs, cfg.SharedBaseFile)
	}
	if cfg.InsertFlushInterval != 250*time.Millisecond || cfg.ArchiveRetention != 30 {
		t.Errorf("archive settings = %v/%d", cfg.InsertFlushInterval, cfg.ArchiveRetention)
	}
	if !cfg.MetricsEnabled || cfg.NATSSubject != "nexum.activity" {
		t.Errorf("metrics/nats = %v/%q", cfg.MetricsEnabled, cfg.NATSSubject)
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath = %q, want empty without a file", cfg.ConfigPath)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(home, "nexum.yml")
	content := strings.Join([]string{
		"api-port: 8081",
		"db-path: ~/data/archive.duckdb",
		"shared-data-dirs: [/srv/a, /srv/b]",
		"backup-interval: 30m",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEXUM_MAX_UPLOAD_ENTRIES", "250")
	t.Setenv("NEXUM_LOG_LEVEL", "debug")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.APIAddr != "127.0.0.1:8081" {
		t.Errorf("APIAddr = %q", cfg.APIAddr)
	}
	if want := filepath.Join(home, "data", "archive.duckdb"); cfg.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, want)
	}
	if len(cfg.SharedDataDirs) != 2 || cfg.SharedDataDirs[1] != "/srv/b" {
		t.Errorf("SharedDataDirs = %v", cfg.SharedDataDirs)
	}
	if cfg.BackupInterval != 30*time.Minute {
		t.Errorf("BackupInterval = %v", cfg.BackupInterval)
	}
	if cfg.MaxUploadEntries != 250 || cfg.LogLevel != "debug" {
		t.Errorf("env overrides = %d/%q", cfg.MaxUploadEntries, cfg.LogLevel)
	}
	if cfg.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", cfg.ConfigPath, path)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"port too large", "NEXUM_API_PORT", "70000"},
		{"zero upload size", "NEXUM_MAX_UPLOAD_SIZE", "0"},
		{"negative entry cap", "NEXUM_MAX_UPLOAD_ENTRIES", "-1"},
		{"negative retention", "NEXUM_ARCHIVE_RETENTION", "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := t.TempDir()
			t.Setenv("HOME", home)
			t.Setenv(tt.env, tt.val)
			if _, err := loadConfig(filepath.Join(home, "missing.yml")); err == nil {
				t.Errorf("expected error for %s=%s", tt.env, tt.val)
			}
		})
	}
}

func TestShortenPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if got := shortenPath(filepath.Join(home, "x", "y")); got != "~/x/y" {
		t.Errorf("shortenPath = %q", got)
	}
	if got := shortenPath("/opt/other"); got != "/opt/other" {
		t.Errorf("shortenPath = %q", got)
	}
}
