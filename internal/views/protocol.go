package views

import (
	"sort"

	"github.com/nexumobscura/nexum/internal/model"
)

// ProtocolShare is one row of the protocol distribution.
type ProtocolShare struct {
	Protocol   string  `json:"protocol"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	ProtocolInfo
}

// ActionShare is one row of the action distribution.
type ActionShare struct {
	Action     string  `json:"action"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Distribution is the /protocol-analysis response body.
type Distribution struct {
	Protocols        []ProtocolShare `json:"protocols"`
	Actions          []ActionShare   `json:"actions"`
	DominantProtocol *ProtocolShare  `json:"dominantProtocol"`
	TotalEntries     int             `json:"totalEntries"`
}

type counter struct {
	counts map[string]int
	order  []string
}

func (c *counter) add(k string) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, ok := c.counts[k]; !ok {
		c.order = append(c.order, k)
	}
	c.counts[k]++
}

// sorted returns keys by count descending; ties keep first-seen order.
func (c *counter) sorted() []string {
	keys := append([]string(nil), c.order...)
	sort.SliceStable(keys, func(i, j int) bool { return c.counts[keys[i]] > c.counts[keys[j]] })
	return keys
}

// BuildDistribution counts protocol and action values as shares of all
// entries. Missing values are counted as "Unknown".
func BuildDistribution(entries []model.LogEntry, t *Tables) Distribution {
	var protos, actions counter
	for i := range entries {
		protos.add(orUnknown(entries[i].Protocol))
		actions.add(orUnknown(entries[i].Action))
	}

	total := len(entries)
	out := Distribution{Protocols: []ProtocolShare{}, Actions: []ActionShare{}, TotalEntries: total}
	for _, p := range protos.sorted() {
		out.Protocols = append(out.Protocols, ProtocolShare{
			Protocol:     p,
			Count:        protos.counts[p],
			Percentage:   percent(protos.counts[p], total),
			ProtocolInfo: t.Protocol(p),
		})
	}
	for _, a := range actions.sorted() {
		out.Actions = append(out.Actions, ActionShare{
			Action:     a,
			Count:      actions.counts[a],
			Percentage: percent(actions.counts[a], total),
		})
	}
	if len(out.Protocols) > 0 {
		d := out.Protocols[0]
		out.DominantProtocol = &d
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
