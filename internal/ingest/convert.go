package ingest

import (
	"strconv"
	"strings"
)

// convertValue turns a raw CSV cell into a typed graph property value.
// Empty cells become nil, which the pipeline writes as an absent property.
// Booleans and numbers are recognized; everything else stays a string.
func convertValue(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	switch strings.ToLower(s) {
	case "true", "yes":
		return true
	case "false", "no":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	return s
}

// convertProps builds a typed property map from a row using the
// property-name to column mapping. Nil values are omitted.
func convertProps(row map[string]string, mapping map[string]string) map[string]any {
	props := make(map[string]any, len(mapping))
	for prop, col := range mapping {
		if v := convertValue(row[col]); v != nil {
			props[prop] = v
		}
	}
	return props
}
