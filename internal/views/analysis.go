package views

import (
	"fmt"
	"sort"

	"github.com/nexumobscura/nexum/internal/model"
)

// Call analysis thresholds.
const (
	minPairCalls      = 3
	topPairs          = 10
	shortCallSeconds  = 30
	longCallSeconds   = 600
	burstMediumRatio  = 0.3
	burstHighRatio    = 0.5
	nightRatio        = 0.2
	nightStartHour    = 22
	nightEndHour      = 6
	highRiskThreshold = 70
)

// PairStat is a pair of parties that called each other repeatedly.
type PairStat struct {
	PartyA        string  `json:"partyA"`
	PartyB        string  `json:"partyB"`
	Calls         int     `json:"frequency"`
	TotalDuration int64   `json:"totalDuration"`
	AvgRisk       float64 `json:"avgRisk"`
}

// Pattern is one heuristic finding.
type Pattern struct {
	Type        string  `json:"type"`
	Severity    string  `json:"severity"`
	Description string  `json:"description"`
	Count       int     `json:"count"`
	Percentage  float64 `json:"percentage"`
}

// AnomalySummary counts anomalies across all entries.
type AnomalySummary struct {
	TotalRecords    int            `json:"totalRecords"`
	HighRiskRecords int            `json:"highRiskRecords"`
	FlaggedRecords  int            `json:"flaggedRecords"`
	AnomalyTypes    map[string]int `json:"anomalyTypes"`
}

// Analysis is the /analysis response body.
type Analysis struct {
	HasData               bool           `json:"hasData"`
	SuspiciousConnections []PairStat     `json:"suspiciousConnections"`
	Patterns              []Pattern      `json:"patterns"`
	Anomalies             AnomalySummary `json:"anomalySummary"`
}

// Pattern returns the finding of the given type, if any.
func (a Analysis) Pattern(kind string) (Pattern, bool) {
	for _, p := range a.Patterns {
		if p.Type == kind {
			return p, true
		}
	}
	return Pattern{}, false
}

func parties(e *model.LogEntry) (string, string) {
	if e.AParty != "" && e.BParty != "" {
		return e.AParty, e.BParty
	}
	return e.SourceIP, e.DestIP
}

// BuildAnalysis runs the call-record heuristics.
func BuildAnalysis(entries []model.LogEntry) Analysis {
	out := Analysis{
		HasData:               len(entries) > 0,
		SuspiciousConnections: []PairStat{},
		Patterns:              []Pattern{},
		Anomalies:             AnomalySummary{TotalRecords: len(entries), AnomalyTypes: map[string]int{}},
	}

	type pairAcc struct {
		a, b     string
		calls    int
		duration int64
		risk     int
	}
	pairs := make(map[string]*pairAcc)
	var order []string

	var withDuration, short, long, timed, night int
	for i := range entries {
		e := &entries[i]

		if a, b := parties(e); a != "" && b != "" {
			key, x, y := PairKey(a, b)
			acc, ok := pairs[key]
			if !ok {
				acc = &pairAcc{a: x, b: y}
				pairs[key] = acc
				order = append(order, key)
			}
			acc.calls++
			acc.duration = model.AddSaturating(acc.duration, e.DurationSeconds())
			acc.risk += e.SuspicionScore
		}

		if e.Duration != "" {
			withDuration++
			d := e.DurationSeconds()
			if d < shortCallSeconds {
				short++
			}
			if d > longCallSeconds {
				long++
			}
		}
		if !e.At.IsZero() {
			timed++
			if h := e.At.UTC().Hour(); h >= nightStartHour || h < nightEndHour {
				night++
			}
		}

		if e.SuspicionScore > highRiskThreshold {
			out.Anomalies.HighRiskRecords++
		}
		if e.ThreatFlag == model.ThreatSuspicious {
			out.Anomalies.FlaggedRecords++
		}
		if e.AnomalyType != "" && e.AnomalyType != model.AnomalyNone {
			out.Anomalies.AnomalyTypes[e.AnomalyType]++
		}
	}

	var frequent []PairStat
	for _, key := range order {
		acc := pairs[key]
		if acc.calls < minPairCalls {
			continue
		}
		frequent = append(frequent, PairStat{
			PartyA:        acc.a,
			PartyB:        acc.b,
			Calls:         acc.calls,
			TotalDuration: acc.duration,
			AvgRisk:       round1(float64(acc.risk) / float64(acc.calls)),
		})
	}
	sort.SliceStable(frequent, func(i, j int) bool { return frequent[i].Calls > frequent[j].Calls })
	if len(frequent) > topPairs {
		frequent = frequent[:topPairs]
	}
	if frequent != nil {
		out.SuspiciousConnections = frequent
	}

	if withDuration > 0 {
		ratio := float64(short) / float64(withDuration)
		if ratio > burstMediumRatio {
			sev := "medium"
			if ratio > burstHighRatio {
				sev = "high"
			}
			out.Patterns = append(out.Patterns, Pattern{
				Type:        "burst",
				Severity:    sev,
				Description: fmt.Sprintf("%d calls shorter than %ds", short, shortCallSeconds),
				Count:       short,
				Percentage:  percent(short, withDuration),
			})
		}
		if long > 0 {
			out.Patterns = append(out.Patterns, Pattern{
				Type:        "extended",
				Severity:    "medium",
				Description: fmt.Sprintf("%d calls longer than %ds", long, longCallSeconds),
				Count:       long,
				Percentage:  percent(long, withDuration),
			})
		}
	}
	if timed > 0 && float64(night)/float64(timed) > nightRatio {
		out.Patterns = append(out.Patterns, Pattern{
			Type:        "night",
			Severity:    "medium",
			Description: fmt.Sprintf("%d records between 22:00 and 06:00", night),
			Count:       night,
			Percentage:  percent(night, timed),
		})
	}
	return out
}
