// Package report builds the summary/detailed reports and the CSV/JSON
// exports.
package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nexumobscura/nexum/internal/model"
)

var (
	// ErrUnknownType is returned for report or export types other than the
	// supported ones.
	ErrUnknownType = errors.New("unknown report type")
	// ErrUnknownFormat is returned for export formats other than csv and json.
	ErrUnknownFormat = errors.New("unknown export format")
)

const (
	topRiskCount      = 10
	detailedEntryCap  = 100
	reportTitle       = "Nexum Obscura IPDR Investigation Report"
	reportVersion     = "1.0"
	reportGeneratedBy = "Nexum Obscura Analysis Engine"
)

// Metadata is the fixed report header.
type Metadata struct {
	Title        string `json:"title"`
	Version      string `json:"version"`
	GeneratedBy  string `json:"generatedBy"`
	GeneratedAt  string `json:"generatedAt"`
	Format       string `json:"format"`
	DateRange    string `json:"dateRange"`
	TotalRecords int    `json:"totalRecords"`
}

// RiskDistribution counts entries per risk level.
type RiskDistribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Summary is the body of a summary report.
type Summary struct {
	Overview         model.Stats      `json:"overview"`
	RiskDistribution RiskDistribution `json:"riskDistribution"`
	TopRisks         []model.LogEntry `json:"topRisks"`
}

// Detailed is the body of a detailed report.
type Detailed struct {
	Overview        model.Stats      `json:"overview"`
	Entries         []model.LogEntry `json:"entries"`
	TotalEntries    int              `json:"totalEntries"`
	Recommendations []string         `json:"recommendations"`
}

// Report is the /reports response body. Exactly one of Summary and
// Detailed is set.
type Report struct {
	ReportID string    `json:"reportId"`
	Type     string    `json:"type"`
	Metadata Metadata  `json:"metadata"`
	Summary  *Summary  `json:"summary,omitempty"`
	Detailed *Detailed `json:"detailed,omitempty"`
}

// Request selects a report.
type Request struct {
	Type      string
	Format    string
	DateRange string
}

// Build assembles a report over entries.
func Build(req Request, entries []model.LogEntry, stats model.Stats, now time.Time) (Report, error) {
	if req.Type == "" {
		req.Type = "summary"
	}
	if req.Format == "" {
		req.Format = "json"
	}
	if req.DateRange == "" {
		req.DateRange = "all"
	}
	r := Report{
		ReportID: fmt.Sprintf("RPT-%d", now.UnixMilli()),
		Type:     req.Type,
		Metadata: Metadata{
			Title:        reportTitle,
			Version:      reportVersion,
			GeneratedBy:  reportGeneratedBy,
			GeneratedAt:  model.FormatISO(now),
			Format:       req.Format,
			DateRange:    req.DateRange,
			TotalRecords: len(entries),
		},
	}

	switch req.Type {
	case "summary":
		r.Summary = &Summary{
			Overview:         stats,
			RiskDistribution: Distribution(entries),
			TopRisks:         TopByRisk(entries, topRiskCount),
		}
	case "detailed":
		n := min(len(entries), detailedEntryCap)
		r.Detailed = &Detailed{
			Overview:        stats,
			Entries:         append([]model.LogEntry{}, entries[:n]...),
			TotalEntries:    len(entries),
			Recommendations: Recommendations(stats),
		}
	default:
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}
	return r, nil
}

// Distribution counts entries per risk level.
func Distribution(entries []model.LogEntry) RiskDistribution {
	var d RiskDistribution
	for i := range entries {
		switch entries[i].RiskLevel {
		case model.RiskHigh:
			d.High++
		case model.RiskMedium:
			d.Medium++
		default:
			d.Low++
		}
	}
	return d
}

// TopByRisk returns the n highest-scoring entries; equal scores keep store
// order.
func TopByRisk(entries []model.LogEntry, n int) []model.LogEntry {
	sorted := append([]model.LogEntry{}, entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SuspicionScore > sorted[j].SuspicionScore })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Recommendations are canned guidance lines referencing live counts.
func Recommendations(s model.Stats) []string {
	return []string{
		fmt.Sprintf("Review %d flagged numbers with suspicion scores above 70", s.FlaggedNumbers),
		fmt.Sprintf("Open follow-up on %d investigation cases marked suspicious at source", s.InvestigationCases),
		fmt.Sprintf("Correlate %d anomalous patterns against tower and subscriber records", s.SuspiciousPatterns),
		fmt.Sprintf("Monitor %d network nodes for repeat contact with flagged parties", s.NetworkNodes),
	}
}
