package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/nexumobscura/nexum/internal/model"
)

// exportThreshold selects entries for the suspicious export.
const exportThreshold = 60

// Column maps an entry field to its export header.
type Column struct {
	Header string
	Value  func(e *model.LogEntry) string
}

// EntryColumns is the fixed rename table for entry exports.
var EntryColumns = []Column{
	{"ID", func(e *model.LogEntry) string { return e.ID }},
	{"Timestamp", func(e *model.LogEntry) string { return e.Timestamp }},
	{"Source IP", func(e *model.LogEntry) string { return e.SourceIP }},
	{"Destination IP", func(e *model.LogEntry) string { return e.DestIP }},
	{"A Party", func(e *model.LogEntry) string { return e.AParty }},
	{"B Party", func(e *model.LogEntry) string { return e.BParty }},
	{"Duration", func(e *model.LogEntry) string { return e.Duration }},
	{"Protocol", func(e *model.LogEntry) string { return e.Protocol }},
	{"Action", func(e *model.LogEntry) string { return e.Action }},
	{"Bytes", func(e *model.LogEntry) string { return e.Bytes }},
	{"City", func(e *model.LogEntry) string { return e.City }},
	{"Threat Flag", func(e *model.LogEntry) string { return e.ThreatFlag }},
	{"Suspicion Score", func(e *model.LogEntry) string { return strconv.Itoa(e.SuspicionScore) }},
	{"Risk Level", func(e *model.LogEntry) string { return string(e.RiskLevel) }},
	{"Anomaly Type", func(e *model.LogEntry) string { return e.AnomalyType }},
	{"Source File", func(e *model.LogEntry) string { return e.SourceFile }},
	{"Processed At", func(e *model.LogEntry) string { return model.FormatISO(e.ProcessedAt) }},
}

var summaryHeaders = []string{
	"Total Records", "Active Connections", "Flagged Numbers", "Investigation Cases",
	"Suspicious Patterns", "Network Nodes", "Data Processed (MB)", "Risk Score", "Generated At",
}

// ExportRequest selects an export.
type ExportRequest struct {
	Type   string // logs | suspicious | summary
	Format string // csv | json
	Filter string // high | medium | low, anything else ignored
}

// Download is a rendered export file.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// Export renders the requested export.
func Export(req ExportRequest, entries []model.LogEntry, stats model.Stats, now time.Time) (Download, error) {
	if req.Format == "" {
		req.Format = "csv"
	}
	if req.Format != "csv" && req.Format != "json" {
		return Download{}, fmt.Errorf("%w: %q", ErrUnknownFormat, req.Format)
	}

	var headers []string
	var rows [][]string
	switch req.Type {
	case "logs", "suspicious":
		selected := filterRisk(entries, req.Filter)
		for _, c := range EntryColumns {
			headers = append(headers, c.Header)
		}
		for i := range selected {
			e := &selected[i]
			if req.Type == "suspicious" && e.SuspicionScore <= exportThreshold {
				continue
			}
			row := make([]string, len(EntryColumns))
			for j, c := range EntryColumns {
				row[j] = c.Value(e)
			}
			rows = append(rows, row)
		}
	case "summary":
		headers = summaryHeaders
		rows = [][]string{{
			strconv.Itoa(stats.TotalRecords),
			strconv.Itoa(stats.ActiveConnections),
			strconv.Itoa(stats.FlaggedNumbers),
			strconv.Itoa(stats.InvestigationCases),
			strconv.Itoa(stats.SuspiciousPatterns),
			strconv.Itoa(stats.NetworkNodes),
			strconv.Itoa(stats.DataProcessed),
			strconv.Itoa(stats.RiskScore),
			model.FormatISO(now),
		}}
	default:
		return Download{}, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}

	d := Download{
		Filename: fmt.Sprintf("nexum-%s-%d.%s", req.Type, now.UnixMilli(), req.Format),
		Rows:     len(rows),
	}
	if req.Format == "csv" {
		d.ContentType = "text/csv"
		d.Body = []byte(RenderCSV(headers, rows))
		return d, nil
	}

	records := make([]record, 0, len(rows))
	for _, row := range rows {
		records = append(records, record{headers: headers, values: row})
	}
	body, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return Download{}, fmt.Errorf("encode export: %w", err)
	}
	d.ContentType = "application/json"
	d.Body = body
	return d, nil
}

// record is one JSON export object. Keys keep the column table order.
type record struct {
	headers []string
	values  []string
}

func (r record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, h := range r.headers {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(h)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// RenderCSV joins rows with commas. Fields containing a comma are wrapped in
// double quotes; nothing else is escaped.
func RenderCSV(headers []string, rows [][]string) string {
	var b strings.Builder
	writeCSVLine(&b, headers)
	for _, row := range rows {
		b.WriteByte('\n')
		writeCSVLine(&b, row)
	}
	return b.String()
}

func writeCSVLine(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		if strings.Contains(f, ",") {
			b.WriteByte('"')
			b.WriteString(f)
			b.WriteByte('"')
			continue
		}
		b.WriteString(f)
	}
}

func filterRisk(entries []model.LogEntry, filter string) []model.LogEntry {
	var level model.RiskLevel
	switch strings.ToLower(filter) {
	case "high":
		level = model.RiskHigh
	case "medium":
		level = model.RiskMedium
	case "low":
		level = model.RiskLow
	default:
		return entries
	}
	out := make([]model.LogEntry, 0, len(entries))
	for _, e := range entries {
		if e.RiskLevel == level {
			out = append(out, e)
		}
	}
	return out
}
