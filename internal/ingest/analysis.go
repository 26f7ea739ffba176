package ingest

import (
	"fmt"

	"github.com/nexumobscura/nexum/internal/entropy"
)

// AnomalyCount is one line of the placeholder anomaly breakdown.
type AnomalyCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// PlaceholderAnalysis is the cosmetic block returned with every upload. Its
// numbers are random and do not describe the uploaded rows.
type PlaceholderAnalysis struct {
	SuspiciousRecords int            `json:"suspiciousRecords"`
	RiskScore         int            `json:"riskScore"`
	AnomaliesDetected int            `json:"anomaliesDetected"`
	Patterns          []AnomalyCount `json:"patterns"`
	Summary           string         `json:"summary"`
}

var placeholderPatterns = []string{"Burst Calling", "Night Activity", "Long Duration", "Rapid Tower Switching"}

// NewPlaceholderAnalysis draws a placeholder block for an upload of processed rows.
func NewPlaceholderAnalysis(rnd entropy.Source, processed int) PlaceholderAnalysis {
	a := PlaceholderAnalysis{
		SuspiciousRecords: rnd.IntN(processed/10 + 1),
		RiskScore:         rnd.IntN(100),
		Patterns:          make([]AnomalyCount, 0, len(placeholderPatterns)),
	}
	for _, p := range placeholderPatterns {
		n := rnd.IntN(20)
		a.AnomaliesDetected += n
		a.Patterns = append(a.Patterns, AnomalyCount{Type: p, Count: n})
	}
	a.Summary = fmt.Sprintf("Processed %d records: %d flagged as suspicious, %d anomalies detected",
		processed, a.SuspiciousRecords, a.AnomaliesDetected)
	return a
}
