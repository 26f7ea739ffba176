package main

import (
	"time"

	"github.com/nexumobscura/nexum/internal/model"
)

const (
	defaultBindHost            = "127.0.0.1"
	defaultAPIPort             = 5000
	defaultBaseFile            = "ipdr_base.csv"
	defaultEnrichedFile        = "ipdr_enriched.csv"
	defaultMaxUploadSize       = model.DefaultMaxUploadSize
	defaultMaxUploadEntries    = model.DefaultMaxUploadEntries
	defaultFallbackEntries     = model.DefaultFallbackEntries
	defaultViewCacheSize       = 128
	defaultQueryTimeout        = 30 * time.Second
	defaultInsertBatchSize     = 500
	defaultInsertFlushInterval = 250 * time.Millisecond
	defaultInsertFlushQueue    = 64
	defaultArchiveRetention    = 30 // days, 0 = disabled
	defaultBackupInterval      = 6 * time.Hour
	defaultBackupKeepLast      = 24
	defaultBackupS3Region      = "us-east-1"
	defaultNATSSubject         = "nexum.activity"
	defaultLogLevel            = "info"
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	APIPort             int           `mapstructure:"api-port"`
	APIAddr             string        `mapstructure:"api-addr"`
	SharedDataDirs      []string      `mapstructure:"shared-data-dirs"`
	SharedBaseFile      string        `mapstructure:"shared-base-file"`
	SharedEnrichedFile  string        `mapstructure:"shared-enriched-file"`
	UploadDir           string        `mapstructure:"upload-dir"`
	MaxUploadSize       int64         `mapstructure:"max-upload-size"`
	MaxUploadEntries    int           `mapstructure:"max-upload-entries"`
	FallbackEntries     int           `mapstructure:"fallback-entries"`
	RandomSeed          uint64        `mapstructure:"random-seed"`
	ViewCacheSize       int           `mapstructure:"view-cache-size"`
	ArchiveEnabled      bool          `mapstructure:"archive-enabled"`
	DBPath              string        `mapstructure:"db-path"`
	QueryTimeout        time.Duration `mapstructure:"query-timeout"`
	InsertBatchSize     int           `mapstructure:"insert-batch-size"`
	InsertFlushInterval time.Duration `mapstructure:"insert-flush-interval"`
	InsertFlushQueue    int           `mapstructure:"insert-flush-queue-size"`
	ArchiveRetention    int           `mapstructure:"archive-retention"`

	BackupEnabled        bool          `mapstructure:"backup-enabled"`
	BackupInterval       time.Duration `mapstructure:"backup-interval"`
	BackupLocalDir       string        `mapstructure:"backup-local-dir"`
	BackupKeepLast       int           `mapstructure:"backup-keep-last"`
	BackupBucketURL      string        `mapstructure:"backup-bucket-url"`
	BackupS3Endpoint     string        `mapstructure:"backup-s3-endpoint"`
	BackupS3Region       string        `mapstructure:"backup-s3-region"`
	BackupS3AccessKey    string        `mapstructure:"backup-s3-access-key"`
	BackupS3SecretKey    string        `mapstructure:"backup-s3-secret-key"`
	BackupS3SessionToken string        `mapstructure:"backup-s3-session-token"`

	NATSURL     string `mapstructure:"nats-url"`
	NATSSubject string `mapstructure:"nats-subject"`

	LogLevel       string `mapstructure:"log-level"`
	LogPretty      bool   `mapstructure:"log-pretty"`
	MetricsEnabled bool   `mapstructure:"metrics-enabled"`

	ConfigPath string `mapstructure:"-"` // not from config file
}
