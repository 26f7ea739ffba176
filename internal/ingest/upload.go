package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrNoFile is returned when an upload request carries no file.
	ErrNoFile = errors.New("no file uploaded")
	// ErrNotCSV is returned for files that are neither .csv nor text/csv.
	ErrNotCSV = errors.New("only CSV files are allowed")
	// ErrFileTooLarge is returned for files above the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// ValidateUpload checks name, declared mime type and size of an upload.
func ValidateUpload(filename, mimeType string, size, maxSize int64) error {
	if filename == "" {
		return ErrNoFile
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".csv" && !strings.HasPrefix(strings.ToLower(mimeType), "text/csv") {
		return fmt.Errorf("%s: %w", filename, ErrNotCSV)
	}
	if maxSize > 0 && size > maxSize {
		return fmt.Errorf("%s is %d bytes, limit %d: %w", filename, size, maxSize, ErrFileTooLarge)
	}
	return nil
}
