package model

import (
	"math"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// RiskLevel classifies an entry as Low, Medium or High.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// ThreatSuspicious is the threat_flag value that marks a row as suspicious.
const ThreatSuspicious = "Suspicious"

// AnomalyNone is the anomaly type recorded when a row carries none.
const AnomalyNone = "None"

// KnownFields are the columns the pipeline understands, resolved from
// whichever header alias the source file used.
type KnownFields struct {
	SourceIP   string
	DestIP     string
	Protocol   string
	Action     string
	Bytes      string
	ThreatFlag string
	City       string
	Timestamp  string
	AParty     string
	BParty     string
	Duration   string
	CellID     string
}

// LogEntry is one parsed and enriched CSV row.
// Columns keeps every source column verbatim so schema-less files survive
// ingestion; KnownFields is the typed view over the columns the pipeline uses.
type LogEntry struct {
	KnownFields

	ID             string
	SourceFile     string
	ProcessedAt    time.Time
	SuspicionScore int
	RiskLevel      RiskLevel
	AnomalyType    string

	// At is the parsed Timestamp. Zero when missing or unparseable.
	At time.Time

	Columns map[string]string
	Order   []string // header order of Columns
}

// BytesValue returns the bytes column as an integer, parsing leading digits
// only and yielding 0 when missing or non-numeric.
func (e *LogEntry) BytesValue() int64 {
	return LeadingInt(e.Bytes)
}

// DurationSeconds returns the duration column in whole seconds (0 if absent).
func (e *LogEntry) DurationSeconds() int64 {
	return LeadingInt(e.Duration)
}

// Column returns a raw column value by its original header.
func (e *LogEntry) Column(name string) string {
	return e.Columns[name]
}

// Values returns the string form of every field on the entry, raw columns
// first followed by the derived fields.
func (e *LogEntry) Values() []string {
	out := make([]string, 0, len(e.Order)+6)
	for _, k := range e.Order {
		out = append(out, e.Columns[k])
	}
	out = append(out,
		e.ID,
		strconv.Itoa(e.SuspicionScore),
		string(e.RiskLevel),
		FormatISO(e.ProcessedAt),
		e.SourceFile,
		e.AnomalyType,
	)
	return out
}

// MarshalJSON flattens raw columns and derived fields into one object, the
// shape the dashboard consumes.
func (e LogEntry) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Columns)+12)
	for k, v := range e.Columns {
		m[k] = v
	}
	canonical := map[string]string{
		"source_ip":   e.SourceIP,
		"dest_ip":     e.DestIP,
		"protocol":    e.Protocol,
		"action":      e.Action,
		"bytes":       e.Bytes,
		"threat_flag": e.ThreatFlag,
		"city":        e.City,
		"timestamp":   e.Timestamp,
		"a_party":     e.AParty,
		"b_party":     e.BParty,
		"duration":    e.Duration,
		"cell_id":     e.CellID,
	}
	for k, v := range canonical {
		if _, ok := m[k]; !ok && v != "" {
			m[k] = v
		}
	}
	m["id"] = e.ID
	m["suspicionScore"] = e.SuspicionScore
	m["riskLevel"] = e.RiskLevel
	m["processedAt"] = FormatISO(e.ProcessedAt)
	m["sourceFile"] = e.SourceFile
	m["anomalyType"] = e.AnomalyType
	return json.Marshal(m)
}

// AddSaturating adds two non-negative totals, pinning at math.MaxInt64.
func AddSaturating(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// LeadingInt parses the leading decimal digits of s, tolerating surrounding
// whitespace and a sign. Non-numeric input yields 0; values beyond int64
// saturate.
func LeadingInt(s string) int64 {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	var n int64
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		d := int64(s[i] - '0')
		if n > (math.MaxInt64-d)/10 {
			n = math.MaxInt64 // saturate
		} else {
			n = n*10 + d
		}
		i++
	}
	if i == start {
		return 0
	}
	if neg {
		return -n
	}
	return n
}
