package ingest

import (
	"os"
	"path/filepath"
)

// DefaultSharedDirs are the candidate directories searched, in order, for the
// bundled sample files.
var DefaultSharedDirs = []string{
	"./shared",
	"../shared",
	"./data/shared",
	"/app/shared",
}

// LocateShared returns the first candidate path where name exists as a
// regular file.
func LocateShared(dirs []string, name string) (string, bool) {
	for _, dir := range dirs {
		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}
