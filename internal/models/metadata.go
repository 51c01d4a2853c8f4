package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ErrorCategory marks a metadata record produced by a failed analysis
const ErrorCategory = "Error"

// MetadataRecord is the structured description returned by vision analysis.
// Specifications is schema-free: the analyzer decides the key set per image.
type MetadataRecord struct {
	Category       string            `json:"category"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Material       string            `json:"material"`
	Color          string            `json:"color"`
	Style          string            `json:"style"`
	Tags           []string          `json:"tags"`
	Specifications map[string]string `json:"specifications"`
	PriceEstimate  float64           `json:"price_estimate"`
	Failure        string            `json:"failure,omitempty"`
}

// ErrorRecord builds the degraded record returned when analysis fails
func ErrorRecord(reason string) MetadataRecord {
	return MetadataRecord{
		Category:       ErrorCategory,
		Description:    reason,
		Tags:           []string{},
		Specifications: map[string]string{},
		Failure:        reason,
	}
}

// Normalize trims string fields and guarantees non-nil collections
func (m MetadataRecord) Normalize() MetadataRecord {
	m.Category = strings.TrimSpace(m.Category)
	m.Title = strings.TrimSpace(m.Title)
	m.Description = strings.TrimSpace(m.Description)
	m.Material = strings.TrimSpace(m.Material)
	m.Color = strings.TrimSpace(m.Color)
	m.Style = strings.TrimSpace(m.Style)

	specs := make(map[string]string, len(m.Specifications))
	for k, v := range m.Specifications {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		specs[k] = strings.TrimSpace(v)
	}
	m.Specifications = specs

	tags := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	m.Tags = tags

	if m.PriceEstimate < 0 {
		m.PriceEstimate = 0
	}
	return m
}

// Failed reports whether the record came from a failed analysis
func (m MetadataRecord) Failed() bool {
	return m.Category == ErrorCategory
}

// CategoryOr returns the category or def when it is missing
func (m MetadataRecord) CategoryOr(def string) string {
	if m.Category == "" {
		return def
	}
	return m.Category
}

// Spec looks up a specification by label, case-insensitively, falling back to def
func (m MetadataRecord) Spec(label, def string) string {
	if v, ok := m.Specifications[label]; ok {
		return v
	}
	for k, v := range m.Specifications {
		if strings.EqualFold(k, label) {
			return v
		}
	}
	return def
}

// Hint derives the short visual description used for text-only generation,
// e.g. "red velvet armchair".
func (m MetadataRecord) Hint() string {
	if m.Failed() {
		return "product"
	}

	seen := make(map[string]bool)
	var words []string
	for _, part := range []string{m.Color, m.Style, m.Material, m.Category} {
		for _, w := range strings.Fields(strings.ToLower(part)) {
			if seen[w] {
				continue
			}
			seen[w] = true
			words = append(words, w)
		}
	}

	if len(words) > 0 {
		return strings.Join(words, " ")
	}
	if m.Title != "" {
		return strings.ToLower(m.Title)
	}
	return "product"
}

// stringifySpec renders an arbitrary decoded JSON value as a spec value
func stringifySpec(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := stringifySpec(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

// SpecsFromAny converts a decoded JSON value into a specification mapping.
// Objects map directly; arrays of {name, value} (or {label, value}) pairs are flattened.
// Anything else yields an empty mapping.
func SpecsFromAny(v any) map[string]string {
	specs := map[string]string{}
	switch val := v.(type) {
	case map[string]any:
		for k, raw := range val {
			specs[k] = stringifySpec(raw)
		}
	case []any:
		for _, item := range val {
			pair, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name := stringifySpec(pair["name"])
			if name == "" {
				name = stringifySpec(pair["label"])
			}
			if name == "" {
				continue
			}
			specs[name] = stringifySpec(pair["value"])
		}
	}
	return specs
}
