package backup

import (
	"context"
	"time"
)

// Config controls periodic archive backups.
type Config struct {
	Enabled   bool
	Interval  time.Duration
	LocalDir  string
	KeepLast  int
	BucketURL string

	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3SessionToken string
}

// Snapshotter produces a consistent copy of the archive database.
type Snapshotter interface {
	DBPath() string
	SnapshotTo(dstPath string) error
}

// Uploader ships one backup artifact off the host.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) error
}
