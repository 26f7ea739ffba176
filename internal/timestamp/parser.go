// Package timestamp parses the timestamp columns found in IPDR CSV files.
package timestamp

import (
	"strconv"
	"strings"
	"time"
)

// Parser tries a fixed list of layouts in order. Values without a zone are
// interpreted as UTC.
type Parser struct {
	layouts []string
}

var defaultLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04:05",
	"2006-01-02",
}

// NewParser returns a parser with the default layouts.
func NewParser() *Parser {
	return &Parser{layouts: defaultLayouts}
}

// ParseTimestamp parses s. Numeric input is treated as Unix seconds, or
// milliseconds when it has 13 or more digits.
func (p *Parser) ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if len(s) >= 13 {
			return time.UnixMilli(n).UTC(), true
		}
		if len(s) >= 9 {
			return time.Unix(n, 0).UTC(), true
		}
		return time.Time{}, false
	}
	for _, layout := range p.layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var defaultParser = NewParser()

// Parse parses s with the default parser.
func Parse(s string) (time.Time, bool) {
	return defaultParser.ParseTimestamp(s)
}

// HourKey truncates t to its UTC hour, e.g. "2024-03-15T14".
func HourKey(t time.Time) string {
	return t.UTC().Format("2006-01-02T15")
}

// StartOfDay parses a YYYY-MM-DD (or any supported) date and returns its
// UTC start.
func StartOfDay(s string) (time.Time, bool) {
	t, ok := Parse(s)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

// EndOfDay returns 23:59:59.999 UTC of the day named by s.
func EndOfDay(s string) (time.Time, bool) {
	start, ok := StartOfDay(s)
	if !ok {
		return time.Time{}, false
	}
	return start.Add(24*time.Hour - time.Millisecond), true
}
