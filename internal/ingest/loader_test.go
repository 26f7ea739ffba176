package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexumobscura/nexum/internal/entropy"
	"github.com/nexumobscura/nexum/internal/model"
)

var fixedNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func parseAll(t *testing.T, csv string, mode ScoreMode) ([]model.LogEntry, ParseResult, error) {
	t.Helper()
	l := NewLoader(entropy.New(1), fixedClock)
	var got []model.LogEntry
	res, err := l.Parse(strings.NewReader(csv), "sample.csv", mode, func(chunk []model.LogEntry) {
		got = append(got, chunk...)
	})
	return got, res, err
}

func TestParse_SharedScoring(t *testing.T) {
	csv := "timestamp,source_ip,dest_ip,protocol,action,bytes,threat_flag,anomaly_type\n" +
		"2024-01-01T10:00,1.1.1.1,2.2.2.2,TCP,ALLOW,100,Suspicious,Port Scan\n" +
		"2024-01-01T11:00,1.1.1.1,3.3.3.3,UDP,BLOCK,200,Normal,\n" +
		"2024-01-01T12:00,4.4.4.4,3.3.3.3,TCP,ALLOW,300,Normal,None\n"

	entries, res, err := parseAll(t, csv, ScoreShared)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 0, res.Errors)
	require.Len(t, entries, 3)

	assert.Equal(t, model.RiskHigh, entries[0].RiskLevel)
	assert.GreaterOrEqual(t, entries[0].SuspicionScore, 70)
	assert.Less(t, entries[0].SuspicionScore, 100)
	assert.Equal(t, "Port Scan", entries[0].AnomalyType)

	assert.Equal(t, model.RiskMedium, entries[1].RiskLevel)
	assert.Less(t, entries[1].SuspicionScore, 70)
	assert.Equal(t, model.AnomalyNone, entries[1].AnomalyType)

	assert.Equal(t, model.RiskLow, entries[2].RiskLevel)

	assert.Equal(t, "sample.csv-1", entries[0].ID)
	assert.Equal(t, "sample.csv-3", entries[2].ID)
	assert.Equal(t, "sample.csv", entries[0].SourceFile)
	assert.Equal(t, fixedNow, entries[0].ProcessedAt)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), entries[0].At)
}

func TestParse_PreservesArbitraryColumns(t *testing.T) {
	csv := "A-Party,B-Party,Duration,Call-Time,Cell-ID,IMEI\n" +
		"+919800000001,+919800000002,45,2024-01-01 10:00:00,CELL-7,356938035643809\n"

	entries, _, err := parseAll(t, csv, ScoreShared)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "+919800000001", e.AParty)
	assert.Equal(t, "+919800000002", e.BParty)
	assert.Equal(t, int64(45), e.DurationSeconds())
	assert.Equal(t, "CELL-7", e.CellID)
	assert.Equal(t, "356938035643809", e.Column("IMEI"))
	assert.Equal(t, []string{"A-Party", "B-Party", "Duration", "Call-Time", "Cell-ID", "IMEI"}, e.Order)
	assert.False(t, e.At.IsZero())
}

func TestParse_MalformedRowsAreCountedAndSkipped(t *testing.T) {
	csv := "source_ip,dest_ip,bytes\n" +
		"1.1.1.1,2.2.2.2,10\n" +
		"only-one-field\n" +
		",,\n" +
		"3.3.3.3,4.4.4.4,30\n"

	entries, res, err := parseAll(t, csv, ScoreShared)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Errors)
	require.Len(t, entries, 2)
	assert.Equal(t, "sample.csv-2", entries[1].ID)
}

func TestParse_UploadScoringIgnoresThreatFlag(t *testing.T) {
	var b strings.Builder
	b.WriteString("source_ip,threat_flag\n")
	for i := 0; i < 300; i++ {
		b.WriteString("1.1.1.1,Suspicious\n")
	}

	entries, res, err := parseAll(t, b.String(), ScoreUpload)
	require.NoError(t, err)
	assert.Equal(t, 300, res.Processed)

	levels := map[model.RiskLevel]int{}
	low := 0
	for _, e := range entries {
		levels[e.RiskLevel]++
		if e.SuspicionScore < 70 {
			low++
		}
	}
	assert.Len(t, levels, 3, "upload risk is drawn independently of threat_flag")
	assert.Positive(t, low)
}

func TestParse_EmptyInput(t *testing.T) {
	entries, res, err := parseAll(t, "", ScoreShared)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, res.Processed)
}

func TestParse_EmitsInChunks(t *testing.T) {
	var b strings.Builder
	b.WriteString("source_ip\n")
	for i := 0; i < chunkSize*2+5; i++ {
		b.WriteString("9.9.9.9\n")
	}
	l := NewLoader(entropy.New(3), fixedClock)
	var sizes []int
	_, err := l.Parse(strings.NewReader(b.String()), "big.csv", ScoreShared, func(chunk []model.LogEntry) {
		sizes = append(sizes, len(chunk))
	})
	require.NoError(t, err)
	assert.Equal(t, []int{chunkSize, chunkSize, 5}, sizes)
}

func TestValidateUpload(t *testing.T) {
	assert.ErrorIs(t, ValidateUpload("", "", 0, 10), ErrNoFile)
	assert.ErrorIs(t, ValidateUpload("notes.txt", "text/plain", 1, 10), ErrNotCSV)
	assert.ErrorIs(t, ValidateUpload("big.csv", "text/csv", 11, 10), ErrFileTooLarge)
	assert.NoError(t, ValidateUpload("LOGS.CSV", "application/octet-stream", 10, 10))
	assert.NoError(t, ValidateUpload("export", "text/csv; charset=utf-8", 5, 10))
}

func TestGenerateFallback(t *testing.T) {
	entries := GenerateFallback(entropy.New(5), fixedClock, 25)
	require.Len(t, entries, 25)
	for _, e := range entries {
		assert.Equal(t, FallbackSource, e.SourceFile)
		assert.NotEmpty(t, e.SourceIP)
		assert.NotEmpty(t, e.DestIP)
		assert.Contains(t, fallbackProtocols, e.Protocol)
		assert.False(t, e.At.After(fixedNow))
	}
}

func TestPlaceholderAnalysis(t *testing.T) {
	a := NewPlaceholderAnalysis(entropy.New(9), 100)
	assert.LessOrEqual(t, a.SuspiciousRecords, 10)
	assert.Len(t, a.Patterns, len(placeholderPatterns))
	sum := 0
	for _, p := range a.Patterns {
		sum += p.Count
	}
	assert.Equal(t, sum, a.AnomaliesDetected)
	assert.Contains(t, a.Summary, "100 records")
}
