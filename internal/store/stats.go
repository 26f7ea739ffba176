package store

import (
	"math"

	"github.com/nexumobscura/nexum/internal/model"
)

// ComputeStats derives the aggregate record from scratch over entries.
func ComputeStats(entries []model.LogEntry) model.Stats {
	var st model.Stats
	if len(entries) == 0 {
		return st
	}

	sources := make(map[string]struct{})
	dests := make(map[string]struct{})
	var bytesTotal int64
	var scoreTotal int

	for i := range entries {
		e := &entries[i]
		if e.Action == "ALLOW" {
			st.ActiveConnections++
		}
		if e.SuspicionScore > 70 {
			st.FlaggedNumbers++
		}
		if e.ThreatFlag == model.ThreatSuspicious {
			st.InvestigationCases++
		}
		if e.AnomalyType != "" && e.AnomalyType != model.AnomalyNone {
			st.SuspiciousPatterns++
		}
		if e.SourceIP != "" {
			sources[e.SourceIP] = struct{}{}
		}
		if e.DestIP != "" {
			dests[e.DestIP] = struct{}{}
		}
		bytesTotal = model.AddSaturating(bytesTotal, e.BytesValue())
		scoreTotal += e.SuspicionScore
	}

	st.TotalRecords = len(entries)
	// Source and destination sets are sized independently: an IP seen on
	// both sides counts twice.
	st.NetworkNodes = len(sources) + len(dests)
	st.DataProcessed = int(RoundHalfUp(float64(bytesTotal) / 1024 / 1024))
	st.RiskScore = int(RoundHalfUp(float64(scoreTotal) / float64(len(entries))))
	return st
}

// RoundHalfUp rounds x to the nearest integer, ties toward +Inf.
func RoundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
