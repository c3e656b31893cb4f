package config

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed idmap.toml
var idmapTOML string

// IDMap remaps participant ids from the keystroke log to study ids.
type IDMap struct {
	ids map[string]string
}

// LoadIDMap returns the remap table for language, or nil when the language has none.
func LoadIDMap(language string) (*IDMap, error) {
	var tables map[string]map[string]string
	if _, err := toml.Decode(idmapTOML, &tables); err != nil {
		return nil, fmt.Errorf("failed to decode id map: %w", err)
	}
	ids, ok := tables[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return nil, nil
	}
	return &IDMap{ids: ids}, nil
}

// Lookup returns the study id for a raw participant id.
func (m *IDMap) Lookup(raw string) (string, bool) {
	id, ok := m.ids[NormalizeID(raw)]
	return id, ok
}

// Len returns the number of mapped ids.
func (m *IDMap) Len() int {
	return len(m.ids)
}

// NormalizeID turns integral numeric ids written as floats ("143.0") into integers.
func NormalizeID(raw string) string {
	s := strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) && strings.Contains(s, ".") {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
