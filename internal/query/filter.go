// Package query filters and paginates the log entry sequence.
package query

import (
	"strconv"
	"strings"

	"github.com/nexumobscura/nexum/internal/model"
	"github.com/nexumobscura/nexum/internal/timestamp"
)

// Params are the /logs query parameters. Empty strings disable a filter.
type Params struct {
	Page       int
	Limit      int
	Search     string
	SourceFile string
	DateFrom   string
	DateTo     string
	RiskLevel  string
	Protocol   string
	Action     string
}

// Pagination describes one page of a filtered result.
type Pagination struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	TotalEntries    int  `json:"totalEntries"`
	Limit           int  `json:"limit"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// Page is a filtered, paginated slice of entries.
type Page struct {
	Entries    []model.LogEntry
	Pagination Pagination
}

// ParseInt reads a positive integer parameter, falling back to def on
// empty, invalid or non-positive input.
func ParseInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Filter applies the filters in fixed order: sourceFile, dateFrom, dateTo,
// riskLevel, protocol, action, search. Input order is preserved.
func Filter(entries []model.LogEntry, p Params) []model.LogEntry {
	out := entries
	if p.SourceFile != "" {
		out = keep(out, func(e *model.LogEntry) bool { return e.SourceFile == p.SourceFile })
	}
	// An unparseable bound matches nothing.
	if p.DateFrom != "" {
		from, ok := timestamp.Parse(p.DateFrom)
		out = keep(out, func(e *model.LogEntry) bool { return ok && !e.At.IsZero() && !e.At.Before(from) })
	}
	if p.DateTo != "" {
		to, ok := timestamp.EndOfDay(p.DateTo)
		out = keep(out, func(e *model.LogEntry) bool { return ok && !e.At.IsZero() && !e.At.After(to) })
	}
	if p.RiskLevel != "" {
		out = keep(out, func(e *model.LogEntry) bool { return string(e.RiskLevel) == p.RiskLevel })
	}
	if p.Protocol != "" {
		out = keep(out, func(e *model.LogEntry) bool { return e.Protocol == p.Protocol })
	}
	if p.Action != "" {
		out = keep(out, func(e *model.LogEntry) bool { return e.Action == p.Action })
	}
	if p.Search != "" {
		needle := strings.ToLower(p.Search)
		out = keep(out, func(e *model.LogEntry) bool {
			for _, v := range e.Values() {
				if strings.Contains(strings.ToLower(v), needle) {
					return true
				}
			}
			return false
		})
	}
	return out
}

// Paginate slices filtered into the requested page. An empty result is a
// valid page with zero totals.
func Paginate(filtered []model.LogEntry, page, limit int) Page {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = model.DefaultPageSize
	}
	total := len(filtered)
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	// Compare before multiplying so huge page or limit values cannot overflow.
	start := total
	if page-1 < totalPages {
		start = (page - 1) * limit
	}
	end := start + min(limit, total-start)
	items := make([]model.LogEntry, end-start)
	copy(items, filtered[start:end])

	return Page{
		Entries: items,
		Pagination: Pagination{
			CurrentPage:     page,
			TotalPages:      totalPages,
			TotalEntries:    total,
			Limit:           limit,
			HasNextPage:     page < totalPages,
			HasPreviousPage: page > 1,
		},
	}
}

// Run filters and paginates in one step.
func Run(entries []model.LogEntry, p Params) Page {
	return Paginate(Filter(entries, p), p.Page, p.Limit)
}

func keep(in []model.LogEntry, pred func(*model.LogEntry) bool) []model.LogEntry {
	out := make([]model.LogEntry, 0, len(in))
	for i := range in {
		if pred(&in[i]) {
			out = append(out, in[i])
		}
	}
	return out
}
