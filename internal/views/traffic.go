package views

import (
	"time"

	"github.com/nexumobscura/nexum/internal/model"
	"github.com/nexumobscura/nexum/internal/timestamp"
)

// Supported traffic windows and their hourly bucket counts.
var trafficWindows = map[string]int{
	"1h":  1,
	"24h": 24,
	"7d":  168,
}

// DefaultTimeRange is used for unknown or empty windows.
const DefaultTimeRange = "24h"

// TrafficBucket is one hour of traffic.
type TrafficBucket struct {
	Hour        string  `json:"hour"`
	Timestamp   string  `json:"timestamp"`
	Volume      int     `json:"volume"`
	Incoming    int     `json:"incoming"`
	Outgoing    int     `json:"outgoing"`
	Suspicious  int     `json:"suspicious"`
	TotalBytes  int64   `json:"totalBytes"`
	AvgDuration float64 `json:"avgDuration"`
	UniqueIPs   int     `json:"uniqueIPs"`
}

// TrafficSummary reports totals and the busiest bucket.
type TrafficSummary struct {
	TotalVolume     int     `json:"totalVolume"`
	TotalSuspicious int     `json:"totalSuspicious"`
	PeakHour        string  `json:"peakHour"`
	PeakVolume      int     `json:"peakVolume"`
	AvgVolume       float64 `json:"avgVolume"`
}

// TrafficFlow is the /traffic-flow response body.
type TrafficFlow struct {
	TimeRange   string          `json:"timeRange"`
	Granularity string          `json:"granularity"`
	Buckets     []TrafficBucket `json:"data"`
	Summary     TrafficSummary  `json:"summary"`
}

type trafficAcc struct {
	volume, incoming, outgoing, suspicious int
	bytes                                  int64
	src, dst                               *orderedSet
}

// NormalizeTimeRange maps unknown windows to the default.
func NormalizeTimeRange(r string) string {
	if _, ok := trafficWindows[r]; ok {
		return r
	}
	return DefaultTimeRange
}

// BuildTrafficFlow buckets entries by UTC hour over the window ending at
// now. Entries outside the window or without a parseable timestamp are
// ignored.
func BuildTrafficFlow(entries []model.LogEntry, timeRange, granularity string, now time.Time) TrafficFlow {
	timeRange = NormalizeTimeRange(timeRange)
	if granularity == "" {
		granularity = "hour"
	}
	n := trafficWindows[timeRange]

	end := now.UTC().Truncate(time.Hour)
	keys := make([]string, n)
	accs := make(map[string]*trafficAcc, n)
	for i := 0; i < n; i++ {
		k := timestamp.HourKey(end.Add(-time.Duration(n-1-i) * time.Hour))
		keys[i] = k
		accs[k] = &trafficAcc{src: newOrderedSet(), dst: newOrderedSet()}
	}

	for i := range entries {
		e := &entries[i]
		if e.At.IsZero() {
			continue
		}
		acc, ok := accs[timestamp.HourKey(e.At)]
		if !ok {
			continue
		}
		acc.volume++
		if e.Action == "ALLOW" {
			acc.incoming++
		} else {
			acc.outgoing++
		}
		if isSuspicious(e) {
			acc.suspicious++
		}
		acc.bytes = model.AddSaturating(acc.bytes, e.BytesValue())
		acc.src.add(e.SourceIP)
		acc.dst.add(e.DestIP)
	}

	out := TrafficFlow{TimeRange: timeRange, Granularity: granularity, Buckets: make([]TrafficBucket, 0, n)}
	for i, k := range keys {
		acc := accs[k]
		var avg float64
		if acc.volume > 0 {
			avg = round2(float64(acc.bytes) / float64(acc.volume) / 1024)
		}
		b := TrafficBucket{
			Hour:        k,
			Timestamp:   model.FormatISO(end.Add(-time.Duration(n-1-i) * time.Hour)),
			Volume:      acc.volume,
			Incoming:    acc.incoming,
			Outgoing:    acc.outgoing,
			Suspicious:  acc.suspicious,
			TotalBytes:  acc.bytes,
			AvgDuration: avg,
			UniqueIPs:   acc.src.len() + acc.dst.len(),
		}
		out.Buckets = append(out.Buckets, b)

		out.Summary.TotalVolume += b.Volume
		out.Summary.TotalSuspicious += b.Suspicious
		if i == 0 || b.Volume > out.Summary.PeakVolume {
			out.Summary.PeakVolume = b.Volume
			out.Summary.PeakHour = k
		}
	}
	out.Summary.AvgVolume = round2(float64(out.Summary.TotalVolume) / float64(n))
	return out
}
