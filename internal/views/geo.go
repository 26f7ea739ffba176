package views

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nexumobscura/nexum/internal/entropy"
	"github.com/nexumobscura/nexum/internal/model"
)

const (
	geoAlertLimit  = 5
	geoAlertWindow = 2 * time.Hour
)

// CityStat is one city in the geographic distribution.
type CityStat struct {
	City          string      `json:"city"`
	Coordinates   Coordinates `json:"coordinates"`
	Connections   int         `json:"connections"`
	Suspicious    int         `json:"suspicious"`
	Blocked       int         `json:"blocked"`
	DataVolume    int64       `json:"dataVolume"`
	UniqueSources int         `json:"uniqueSources"`
	ThreatLevel   string      `json:"threatLevel"`
	RiskScore     int         `json:"riskScore"`
}

// GeoAlert is a synthetic threat alert for a high-threat city. Its
// timestamp is randomly backdated and not reproducible.
type GeoAlert struct {
	ID        string      `json:"id"`
	City      string      `json:"city"`
	Severity  string      `json:"severity"`
	Message   string      `json:"message"`
	RiskScore int         `json:"riskScore"`
	Location  Coordinates `json:"location"`
	Timestamp string      `json:"timestamp"`
}

// GeoSummary aggregates the city list.
type GeoSummary struct {
	TotalCities      int    `json:"totalCities"`
	HighThreatCities int    `json:"highThreatCities"`
	TotalConnections int    `json:"totalConnections"`
	MostActiveCity   string `json:"mostActiveCity"`
}

// Geographic is the /geographic-data response body.
type Geographic struct {
	Cities  []CityStat `json:"locations"`
	Alerts  []GeoAlert `json:"threatAlerts"`
	Summary GeoSummary `json:"summary"`
}

type cityAcc struct {
	conns, susp, blocked int
	bytes                int64
	sources              *orderedSet
}

// ThreatLevel classifies a suspicious ratio.
func ThreatLevel(suspiciousRatio float64) string {
	switch {
	case suspiciousRatio > 0.3:
		return "high"
	case suspiciousRatio > 0.1:
		return "medium"
	default:
		return "low"
	}
}

// CityRiskScore combines the suspicious and blocked ratios, capped at 100.
func CityRiskScore(suspiciousRatio, blockedRatio float64) int {
	score := int(math.Round(suspiciousRatio*100) + math.Round(blockedRatio*50))
	return min(score, 100)
}

// BuildGeographic groups entries by city (the city column, else the IP
// prefix table). Cities are ordered by connection count.
func BuildGeographic(entries []model.LogEntry, t *Tables, rnd entropy.Source, now time.Time) Geographic {
	accs := make(map[string]*cityAcc)
	var order []string
	for i := range entries {
		e := &entries[i]
		city := e.City
		if city == "" {
			city = t.CityForIP(e.SourceIP)
		}
		acc, ok := accs[city]
		if !ok {
			acc = &cityAcc{sources: newOrderedSet()}
			accs[city] = acc
			order = append(order, city)
		}
		acc.conns++
		if isSuspicious(e) {
			acc.susp++
		}
		if e.Action != "ALLOW" {
			acc.blocked++
		}
		acc.bytes = model.AddSaturating(acc.bytes, e.BytesValue())
		acc.sources.add(e.SourceIP)
	}

	out := Geographic{Cities: []CityStat{}, Alerts: []GeoAlert{}}
	for _, city := range order {
		acc := accs[city]
		suspRatio := float64(acc.susp) / float64(acc.conns)
		blockedRatio := float64(acc.blocked) / float64(acc.conns)
		out.Cities = append(out.Cities, CityStat{
			City:          city,
			Coordinates:   t.CityCoordinates(city),
			Connections:   acc.conns,
			Suspicious:    acc.susp,
			Blocked:       acc.blocked,
			DataVolume:    acc.bytes,
			UniqueSources: acc.sources.len(),
			ThreatLevel:   ThreatLevel(suspRatio),
			RiskScore:     CityRiskScore(suspRatio, blockedRatio),
		})
	}
	sort.SliceStable(out.Cities, func(i, j int) bool { return out.Cities[i].Connections > out.Cities[j].Connections })

	var high []CityStat
	for _, c := range out.Cities {
		out.Summary.TotalConnections += c.Connections
		if c.ThreatLevel == "high" {
			high = append(high, c)
		}
	}
	out.Summary.TotalCities = len(out.Cities)
	out.Summary.HighThreatCities = len(high)
	if len(out.Cities) > 0 {
		out.Summary.MostActiveCity = out.Cities[0].City
	}

	sort.SliceStable(high, func(i, j int) bool { return high[i].RiskScore > high[j].RiskScore })
	for i, c := range high {
		if i == geoAlertLimit {
			break
		}
		backdate := time.Duration(rnd.Float64() * float64(geoAlertWindow))
		out.Alerts = append(out.Alerts, GeoAlert{
			ID:        uuid.NewString(),
			City:      c.City,
			Severity:  "high",
			Message:   fmt.Sprintf("High suspicious activity in %s: %d of %d connections flagged", c.City, c.Suspicious, c.Connections),
			RiskScore: c.RiskScore,
			Location:  c.Coordinates,
			Timestamp: model.FormatISO(now.Add(-backdate)),
		})
	}
	return out
}
