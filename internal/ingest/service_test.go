package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexumobscura/nexum/internal/entropy"
	"github.com/nexumobscura/nexum/internal/model"
	"github.com/nexumobscura/nexum/internal/store"
)

type fakeArchive struct {
	mu       sync.Mutex
	entries  int
	files    []string
	activity []string
	removed  []string
}

func (f *fakeArchive) AddEntries(e []model.LogEntry) { f.mu.Lock(); f.entries += len(e); f.mu.Unlock() }
func (f *fakeArchive) AddFile(r model.UploadedFile) {
	f.mu.Lock()
	f.files = append(f.files, r.Filename)
	f.mu.Unlock()
}
func (f *fakeArchive) AddActivity(a model.ActivityEntry) {
	f.mu.Lock()
	f.activity = append(f.activity, a.Event)
	f.mu.Unlock()
}
func (f *fakeArchive) RemoveSourceFile(name string) {
	f.mu.Lock()
	f.removed = append(f.removed, name)
	f.mu.Unlock()
}

type fakePublisher struct{ events []model.ActivityEntry }

func (p *fakePublisher) Publish(a model.ActivityEntry) { p.events = append(p.events, a) }

func newTestService(t *testing.T, maxEntries int) (*Service, *fakeArchive, *fakePublisher) {
	t.Helper()
	arch := &fakeArchive{}
	pub := &fakePublisher{}
	svc := NewService(Config{
		Store:      store.New(fixedClock),
		Random:     entropy.New(11),
		Clock:      fixedClock,
		MaxEntries: maxEntries,
		Archive:    arch,
		Publisher:  pub,
	})
	return svc, arch, pub
}

func writeCSV(t *testing.T, dir, name string, rows int, prefix string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("timestamp,source_ip,dest_ip,protocol,action,bytes,threat_flag\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "2024-01-01T10:%02d:00Z,%s.%d,10.0.0.1,TCP,ALLOW,1024,Normal\n", i%60, prefix, i)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func TestLoadShared_UsesFirstMatchingDirectory(t *testing.T) {
	svc, arch, pub := newTestService(t, 0)
	empty := t.TempDir()
	dir := t.TempDir()
	writeCSV(t, dir, "base.csv", 4, "1.1.1")
	writeCSV(t, dir, "enriched.csv", 3, "2.2.2")

	err := svc.LoadShared(context.Background(), SharedConfig{
		Dirs:         []string{empty, dir},
		BaseFile:     "base.csv",
		EnrichedFile: "enriched.csv",
	})
	require.NoError(t, err)

	st := svc.Store()
	assert.True(t, st.SharedLoaded())
	assert.Equal(t, 7, st.Len())
	assert.Equal(t, 7, st.Stats().TotalRecords)
	assert.Equal(t, 7, arch.entries)
	require.Len(t, pub.events, 2)

	entries := st.Snapshot()
	assert.Equal(t, "base.csv-1", entries[0].ID)
	assert.Equal(t, "enriched.csv-1", entries[4].ID)
}

func TestLoadShared_FallsBackWhenNothingFound(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	err := svc.LoadShared(context.Background(), SharedConfig{
		Dirs:            []string{t.TempDir()},
		BaseFile:        "base.csv",
		EnrichedFile:    "enriched.csv",
		FallbackEntries: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, svc.Store().Len())
	assert.Equal(t, FallbackSource, svc.Store().Snapshot()[0].SourceFile)
	act := svc.Store().Activity(1)
	require.Len(t, act, 1)
	assert.Equal(t, model.LevelWarning, act[0].Level)
}

func TestUpload_RemovesTempFileAndRecordsFile(t *testing.T) {
	svc, arch, _ := newTestService(t, 0)
	path := writeCSV(t, t.TempDir(), "tmp-upload", 12, "5.5.5")

	res, err := svc.Upload(path, "x.csv", 1234)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Processed)
	assert.Len(t, res.Sample, sampleSize)
	assert.Equal(t, "x.csv-1", res.Sample[0].ID)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "temp upload must be removed")

	files := svc.Store().Files()
	require.Len(t, files, 1)
	assert.Equal(t, "x.csv", files[0].Filename)
	assert.Equal(t, 12, files[0].RecordsProcessed)
	assert.Equal(t, []string{"x.csv"}, arch.files)
}

func TestUpload_CapKeepsMostRecentEntries(t *testing.T) {
	svc, _, _ := newTestService(t, 50)
	dir := t.TempDir()

	for i, name := range []string{"a.csv", "b.csv", "c.csv"} {
		path := writeCSV(t, dir, fmt.Sprintf("up-%d", i), 30, fmt.Sprintf("%d.0.0", i+1))
		_, err := svc.Upload(path, name, 0)
		require.NoError(t, err)
		assert.LessOrEqual(t, svc.Store().Len(), 50)
	}

	entries := svc.Store().Snapshot()
	require.Len(t, entries, 50)
	assert.Equal(t, "b.csv-11", entries[0].ID)
	assert.Equal(t, "c.csv-30", entries[49].ID)
}

func TestUpload_MissingFileIsAnError(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	_, err := svc.Upload(filepath.Join(t.TempDir(), "gone"), "gone.csv", 0)
	require.Error(t, err)
	assert.Empty(t, svc.Store().Files())
}

func TestDeleteFile_CascadesEntries(t *testing.T) {
	svc, arch, _ := newTestService(t, 0)
	dir := t.TempDir()
	_, err := svc.Upload(writeCSV(t, dir, "keep", 8, "1.2.3"), "keep.csv", 0)
	require.NoError(t, err)
	_, err = svc.Upload(writeCSV(t, dir, "x", 5, "4.5.6"), "x.csv", 0)
	require.NoError(t, err)

	before := svc.Store().Stats().TotalRecords
	removed, err := svc.DeleteFile("x.csv")
	require.NoError(t, err)
	assert.Equal(t, 5, removed)
	assert.Equal(t, before-5, svc.Store().Stats().TotalRecords)
	for _, e := range svc.Store().Snapshot() {
		assert.NotEqual(t, "x.csv", e.SourceFile)
	}
	assert.Equal(t, []string{"x.csv"}, arch.removed)

	act := svc.Store().Activity(1)
	require.Len(t, act, 1)
	assert.Contains(t, act[0].Event, "Deleted x.csv")

	_, err = svc.DeleteFile("x.csv")
	assert.ErrorIs(t, err, store.ErrFileNotFound)
}

func TestStatsMatchRecomputeAfterMixedOperations(t *testing.T) {
	svc, _, _ := newTestService(t, 40)
	dir := t.TempDir()
	writeCSV(t, dir, "base.csv", 20, "7.7.7")
	require.NoError(t, svc.LoadShared(context.Background(), SharedConfig{Dirs: []string{dir}, BaseFile: "base.csv"}))

	for i := 0; i < 3; i++ {
		_, err := svc.Upload(writeCSV(t, dir, fmt.Sprintf("u%d", i), 15, fmt.Sprintf("8.8.%d", i)), fmt.Sprintf("u%d.csv", i), 0)
		require.NoError(t, err)
	}
	_, err := svc.DeleteFile("u1.csv")
	require.NoError(t, err)

	st := svc.Store()
	assert.Equal(t, store.ComputeStats(st.Snapshot()), st.Stats())
}
