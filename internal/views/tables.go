package views

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var tablesYAML []byte

// ProtocolInfo describes a protocol in the distribution view.
type ProtocolInfo struct {
	Description string `yaml:"description" json:"description"`
	Risk        string `yaml:"risk" json:"riskLevel"`
	Color       string `yaml:"color" json:"color"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

type cityPrefix struct {
	Prefix string `yaml:"prefix"`
	City   string `yaml:"city"`
}

// Tables holds the lookup data used by the builders.
type Tables struct {
	InternalPrefixes []string                `yaml:"internal_prefixes"`
	Protocols        map[string]ProtocolInfo `yaml:"protocols"`
	UnknownProtocol  ProtocolInfo            `yaml:"unknown_protocol"`
	CityPrefixes     []cityPrefix            `yaml:"city_prefixes"`
	Cities           map[string]Coordinates  `yaml:"cities"`
	Centroid         Coordinates             `yaml:"centroid"`
}

// LoadTables decodes a YAML table document.
func LoadTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode lookup tables: %w", err)
	}
	if len(t.Protocols) == 0 || len(t.Cities) == 0 {
		return nil, fmt.Errorf("decode lookup tables: missing protocols or cities")
	}
	return &t, nil
}

var defaultTables = mustLoad(tablesYAML)

func mustLoad(data []byte) *Tables {
	t, err := LoadTables(data)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultTables returns the embedded lookup tables.
func DefaultTables() *Tables { return defaultTables }

// IsInternal reports whether ip falls in one of the private prefixes.
func (t *Tables) IsInternal(ip string) bool {
	for _, p := range t.InternalPrefixes {
		if strings.HasPrefix(ip, p) {
			return true
		}
	}
	return false
}

// Protocol returns catalog info for name, or the generic entry.
func (t *Tables) Protocol(name string) ProtocolInfo {
	if info, ok := t.Protocols[name]; ok {
		return info
	}
	return t.UnknownProtocol
}

// CityForIP maps an IP to a city by prefix, "Unknown" when nothing matches.
func (t *Tables) CityForIP(ip string) string {
	for _, p := range t.CityPrefixes {
		if strings.HasPrefix(ip, p.Prefix) {
			return p.City
		}
	}
	return "Unknown"
}

// CityCoordinates returns the city's coordinates or the country centroid.
func (t *Tables) CityCoordinates(city string) Coordinates {
	if c, ok := t.Cities[city]; ok {
		return c
	}
	return t.Centroid
}
