package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nexumobscura/nexum/internal/model"
)

// MaxAlerts bounds the alert list.
const MaxAlerts = 10

// criticalScore marks an individual entry as critical.
const criticalScore = 90

const maxCriticalAlerts = 5

// Alert is one synthesized alert.
type Alert struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Source    string `json:"source,omitempty"`
	Count     int    `json:"count,omitempty"`
	Timestamp string `json:"timestamp"`
}

// IsInternational reports whether a dialled number leaves the home country.
func IsInternational(number string) bool {
	n := strings.TrimSpace(number)
	switch {
	case strings.HasPrefix(n, "+91"), strings.HasPrefix(n, "0091"):
		return false
	case strings.HasPrefix(n, "+"), strings.HasPrefix(n, "00"):
		return true
	}
	return false
}

// BuildAlerts synthesises alerts in construction order: no-data or
// critical-risk, burst, international activity, then a health check.
// The list is capped at MaxAlerts.
func BuildAlerts(entries []model.LogEntry, now time.Time) []Alert {
	ts := model.FormatISO(now)
	alerts := []Alert{}
	add := func(a Alert) {
		a.ID = uuid.NewString()
		a.Timestamp = ts
		alerts = append(alerts, a)
	}

	if len(entries) == 0 {
		add(Alert{
			Type:     "no-data",
			Severity: "info",
			Title:    "No data loaded",
			Message:  "Upload an IPDR CSV file to start the analysis",
		})
	} else {
		critical := 0
		for i := len(entries) - 1; i >= 0 && critical < maxCriticalAlerts; i-- {
			e := &entries[i]
			if e.SuspicionScore < criticalScore {
				continue
			}
			critical++
			src, dst := parties(e)
			add(Alert{
				Type:     "critical-risk",
				Severity: "critical",
				Title:    "Critical risk record",
				Message:  fmt.Sprintf("Record %s (%s -> %s) scored %d", e.ID, src, dst, e.SuspicionScore),
				Source:   e.SourceFile,
			})
		}

		analysis := BuildAnalysis(entries)
		if p, ok := analysis.Pattern("burst"); ok {
			add(Alert{
				Type:     "burst",
				Severity: p.Severity,
				Title:    "Burst calling detected",
				Message:  fmt.Sprintf("%.1f%% of calls are shorter than %ds", p.Percentage, shortCallSeconds),
				Count:    p.Count,
			})
		}

		intl := 0
		for i := range entries {
			if IsInternational(entries[i].BParty) {
				intl++
			}
		}
		if intl > 0 {
			add(Alert{
				Type:     "international-activity",
				Severity: "medium",
				Title:    "International calls",
				Message:  fmt.Sprintf("%d calls to international numbers", intl),
				Count:    intl,
			})
		}
	}

	add(Alert{
		Type:     "health-check",
		Severity: "info",
		Title:    "System health",
		Message:  fmt.Sprintf("Analysis engine running, %d records in memory", len(entries)),
		Count:    len(entries),
	})

	if len(alerts) > MaxAlerts {
		alerts = alerts[:MaxAlerts]
	}
	return alerts
}
