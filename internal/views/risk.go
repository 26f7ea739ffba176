// Package views builds the read-only derived views served by the API:
// network graph, traffic flow, protocol distribution, geographic
// distribution, call analysis and alerts. Builders never mutate their input.
package views

import (
	"math"

	"github.com/nexumobscura/nexum/internal/model"
)

const (
	colorHigh   = "#ef4444"
	colorMedium = "#f59e0b"
	colorLow    = "#10b981"
)

// flaggedScore is the score above which an entry counts as suspicious.
const flaggedScore = 70

func isSuspicious(e *model.LogEntry) bool {
	return e.SuspicionScore > flaggedScore || e.ThreatFlag == model.ThreatSuspicious
}

// riskBand maps an average risk to its level and display color.
func riskBand(avg float64) (string, string) {
	switch {
	case avg > 70:
		return "high", colorHigh
	case avg > 40:
		return "medium", colorMedium
	default:
		return "low", colorLow
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(n) * 100 / float64(total))
}

// orderedSet keeps distinct strings in first-seen order.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) len() int { return len(s.items) }

func (s *orderedSet) list() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
