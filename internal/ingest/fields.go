package ingest

import (
	"strings"

	"github.com/nexumobscura/nexum/internal/model"
)

// fieldAliases maps each known field to the headers that may carry it, in
// preference order.
var fieldAliases = map[string][]string{
	"source_ip":   {"source_ip", "Source-IP", "src_ip"},
	"dest_ip":     {"dest_ip", "Dest-IP", "dst_ip", "destination_ip"},
	"protocol":    {"protocol", "Protocol"},
	"action":      {"action", "Action"},
	"bytes":       {"bytes", "Bytes"},
	"threat_flag": {"threat_flag", "Threat-Flag"},
	"anomaly":     {"anomaly_type", "Anomaly-Type"},
	"city":        {"city", "City"},
	"timestamp":   {"timestamp", "Call-Time", "call_time", "Timestamp"},
	"a_party":     {"a_party", "A-Party"},
	"b_party":     {"b_party", "B-Party"},
	"duration":    {"duration", "Duration"},
	"cell_id":     {"cell_id", "Cell-ID"},
}

func lookup(cols map[string]string, field string) string {
	for _, h := range fieldAliases[field] {
		if v, ok := cols[h]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// resolveKnown builds the typed view over a raw column map.
func resolveKnown(cols map[string]string) (model.KnownFields, string) {
	k := model.KnownFields{
		SourceIP:   lookup(cols, "source_ip"),
		DestIP:     lookup(cols, "dest_ip"),
		Protocol:   lookup(cols, "protocol"),
		Action:     lookup(cols, "action"),
		Bytes:      lookup(cols, "bytes"),
		ThreatFlag: lookup(cols, "threat_flag"),
		City:       lookup(cols, "city"),
		Timestamp:  lookup(cols, "timestamp"),
		AParty:     lookup(cols, "a_party"),
		BParty:     lookup(cols, "b_party"),
		Duration:   lookup(cols, "duration"),
		CellID:     lookup(cols, "cell_id"),
	}
	anomaly := lookup(cols, "anomaly")
	if anomaly == "" {
		anomaly = model.AnomalyNone
	}
	return k, anomaly
}

// blockingActions are the actions that raise a non-suspicious shared row to Medium.
var blockingActions = map[string]bool{"BLOCK": true, "DROP": true, "DENY": true}
