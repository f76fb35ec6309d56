package types

import (
	"sort"
	"strings"
)

// VariantSelections maps a variant attribute (e.g. "color") to the chosen value.
type VariantSelections map[string]string

// Describe renders selections as "color: black, storage: 256GB" in key order.
func (v VariantSelections) Describe() string {
	if len(v) == 0 {
		return ""
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return strings.Join(parts, ", ")
}

// JSONMap is free-form metadata stored as jsonb.
type JSONMap map[string]any
