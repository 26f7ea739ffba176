package ingest

import (
	"fmt"
	"strconv"
	"time"

	"github.com/nexumobscura/nexum/internal/entropy"
	"github.com/nexumobscura/nexum/internal/model"
)

// FallbackSource tags entries synthesized when no sample file is found.
const FallbackSource = "fallback-data"

var (
	fallbackProtocols = []string{"TCP", "UDP", "ICMP", "HTTP", "HTTPS"}
	fallbackActions   = []string{"ALLOW", "ALLOW", "ALLOW", "BLOCK", "DROP", "DENY"}
	fallbackPrefixes  = []string{"106.200", "117.195", "202.142", "223.176", "49.37", "192.168", "10.0"}
	fallbackAnomalies = []string{"None", "None", "None", "Port Scan", "Data Exfiltration", "Unusual Hours"}
)

// GenerateFallback synthesizes n entries with randomized addressing and risk
// fields so the dashboard has something to show.
func GenerateFallback(rnd entropy.Source, clock model.Clock, n int) []model.LogEntry {
	if clock == nil {
		clock = time.Now
	}
	now := clock()
	entries := make([]model.LogEntry, 0, n)
	for i := 1; i <= n; i++ {
		score := rnd.IntN(100)
		threat := "Normal"
		if score > 70 {
			threat = model.ThreatSuspicious
		}
		at := now.Add(-time.Duration(rnd.IntN(24*60)) * time.Minute).UTC()
		known := model.KnownFields{
			SourceIP:   randomIP(rnd),
			DestIP:     randomIP(rnd),
			Protocol:   entropy.Pick(rnd, fallbackProtocols),
			Action:     entropy.Pick(rnd, fallbackActions),
			Bytes:      strconv.Itoa(64 + rnd.IntN(1<<20)),
			ThreatFlag: threat,
			Timestamp:  at.Format(time.RFC3339),
		}
		anomaly := entropy.Pick(rnd, fallbackAnomalies)
		cols := map[string]string{
			"timestamp":    known.Timestamp,
			"source_ip":    known.SourceIP,
			"dest_ip":      known.DestIP,
			"protocol":     known.Protocol,
			"action":       known.Action,
			"bytes":        known.Bytes,
			"threat_flag":  known.ThreatFlag,
			"anomaly_type": anomaly,
		}
		entries = append(entries, model.LogEntry{
			KnownFields:    known,
			ID:             fmt.Sprintf("%s-%d", FallbackSource, i),
			SourceFile:     FallbackSource,
			ProcessedAt:    now,
			SuspicionScore: score,
			RiskLevel:      entropy.Pick(rnd, []model.RiskLevel{model.RiskLow, model.RiskMedium, model.RiskHigh}),
			AnomalyType:    anomaly,
			At:             at,
			Columns:        cols,
			Order:          []string{"timestamp", "source_ip", "dest_ip", "protocol", "action", "bytes", "threat_flag", "anomaly_type"},
		})
	}
	return entries
}

func randomIP(rnd entropy.Source) string {
	return fmt.Sprintf("%s.%d.%d", entropy.Pick(rnd, fallbackPrefixes), rnd.IntN(256), 1+rnd.IntN(254))
}
