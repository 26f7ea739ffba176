package views

import (
	"github.com/nexumobscura/nexum/internal/model"
)

// Network graph defaults.
const (
	DefaultMinConnections = 2
	DefaultGraphLimit     = 50
	suspiciousEdgeRisk    = 50
)

// NetworkParams filters the graph.
type NetworkParams struct {
	MinConnections     int  `json:"minConnections"`
	ShowOnlySuspicious bool `json:"showOnlySuspicious"`
	Limit              int  `json:"limit"`
}

// Node is one IP in the graph.
type Node struct {
	ID              string   `json:"id"`
	Label           string   `json:"label"`
	Type            string   `json:"type"` // internal | external
	ConnectionCount int      `json:"connectionCount"`
	DataVolume      int64    `json:"dataVolume"`
	Protocols       []string `json:"protocols"`
	Actions         []string `json:"actions"`
	AvgRisk         float64  `json:"avgRisk"`
	RiskLevel       string   `json:"riskLevel"`
	Color           string   `json:"color"`
}

// Edge is an unordered IP pair.
type Edge struct {
	ID         string   `json:"id"`
	Source     string   `json:"source"`
	Target     string   `json:"target"`
	Weight     int      `json:"weight"`
	TotalBytes int64    `json:"totalBytes"`
	AvgRisk    float64  `json:"avgRisk"`
	Protocols  []string `json:"protocols"`
	Actions    []string `json:"actions"`
	RiskLevel  string   `json:"riskLevel"`
	Color      string   `json:"color"`
}

// NetworkStatistics summarises the filtered graph.
type NetworkStatistics struct {
	TotalNodes      int   `json:"totalNodes"`
	TotalEdges      int   `json:"totalEdges"`
	InternalNodes   int   `json:"internalNodes"`
	ExternalNodes   int   `json:"externalNodes"`
	HighRiskEdges   int   `json:"highRiskEdges"`
	TotalDataVolume int64 `json:"totalDataVolume"`
	TotalPairs      int   `json:"totalPairs"`
}

// Network is the /network response body.
type Network struct {
	Nodes      []Node            `json:"nodes"`
	Edges      []Edge            `json:"edges"`
	Statistics NetworkStatistics `json:"statistics"`
	Filters    NetworkParams     `json:"filters"`
}

type edgeAcc struct {
	a, b      string
	weight    int
	bytes     int64
	riskSum   int
	protocols *orderedSet
	actions   *orderedSet
}

type nodeAcc struct {
	degree    int
	bytes     int64
	riskSum   int
	protocols *orderedSet
	actions   *orderedSet
}

// PairKey normalises an IP pair so both directions share one key.
func PairKey(a, b string) (string, string, string) {
	if b < a {
		a, b = b, a
	}
	return a + "<->" + b, a, b
}

// BuildNetwork groups entries into an undirected IP graph. Edges and nodes
// are emitted in first-seen order and truncated to the limit after
// filtering.
func BuildNetwork(entries []model.LogEntry, p NetworkParams, t *Tables) Network {
	if p.MinConnections <= 0 {
		p.MinConnections = DefaultMinConnections
	}
	if p.Limit <= 0 {
		p.Limit = DefaultGraphLimit
	}

	edges := make(map[string]*edgeAcc)
	var edgeOrder []string
	nodes := make(map[string]*nodeAcc)
	var nodeOrder []string

	touch := func(ip string, e *model.LogEntry) {
		n, ok := nodes[ip]
		if !ok {
			n = &nodeAcc{protocols: newOrderedSet(), actions: newOrderedSet()}
			nodes[ip] = n
			nodeOrder = append(nodeOrder, ip)
		}
		n.degree++
		n.bytes = model.AddSaturating(n.bytes, e.BytesValue())
		n.riskSum += e.SuspicionScore
		n.protocols.add(e.Protocol)
		n.actions.add(e.Action)
	}

	for i := range entries {
		e := &entries[i]
		if e.SourceIP == "" || e.DestIP == "" {
			continue
		}
		key, a, b := PairKey(e.SourceIP, e.DestIP)
		acc, ok := edges[key]
		if !ok {
			acc = &edgeAcc{a: a, b: b, protocols: newOrderedSet(), actions: newOrderedSet()}
			edges[key] = acc
			edgeOrder = append(edgeOrder, key)
		}
		acc.weight++
		acc.bytes = model.AddSaturating(acc.bytes, e.BytesValue())
		acc.riskSum += e.SuspicionScore
		acc.protocols.add(e.Protocol)
		acc.actions.add(e.Action)

		touch(e.SourceIP, e)
		if e.DestIP != e.SourceIP {
			touch(e.DestIP, e)
		}
	}

	out := Network{Nodes: []Node{}, Edges: []Edge{}, Filters: p}
	out.Statistics.TotalPairs = len(edgeOrder)

	used := make(map[string]bool)
	for _, key := range edgeOrder {
		acc := edges[key]
		if acc.weight < p.MinConnections {
			continue
		}
		avg := float64(acc.riskSum) / float64(acc.weight)
		if p.ShowOnlySuspicious && avg <= suspiciousEdgeRisk {
			continue
		}
		// Nodes come from every filtered edge, not only the kept ones.
		used[acc.a] = true
		used[acc.b] = true
		if len(out.Edges) >= p.Limit {
			continue
		}
		level, color := riskBand(avg)
		out.Edges = append(out.Edges, Edge{
			ID:         key,
			Source:     acc.a,
			Target:     acc.b,
			Weight:     acc.weight,
			TotalBytes: acc.bytes,
			AvgRisk:    round1(avg),
			Protocols:  acc.protocols.list(),
			Actions:    acc.actions.list(),
			RiskLevel:  level,
			Color:      color,
		})
		if level == "high" {
			out.Statistics.HighRiskEdges++
		}
		out.Statistics.TotalDataVolume = model.AddSaturating(out.Statistics.TotalDataVolume, acc.bytes)
	}

	for _, ip := range nodeOrder {
		if !used[ip] {
			continue
		}
		if len(out.Nodes) >= p.Limit {
			break
		}
		n := nodes[ip]
		avg := float64(n.riskSum) / float64(n.degree)
		level, color := riskBand(avg)
		kind := "external"
		if t.IsInternal(ip) {
			kind = "internal"
			out.Statistics.InternalNodes++
		} else {
			out.Statistics.ExternalNodes++
		}
		out.Nodes = append(out.Nodes, Node{
			ID:              ip,
			Label:           ip,
			Type:            kind,
			ConnectionCount: n.degree,
			DataVolume:      n.bytes,
			Protocols:       n.protocols.list(),
			Actions:         n.actions.list(),
			AvgRisk:         round1(avg),
			RiskLevel:       level,
			Color:           color,
		})
	}

	out.Statistics.TotalNodes = len(out.Nodes)
	out.Statistics.TotalEdges = len(out.Edges)
	return out
}
