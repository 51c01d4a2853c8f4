package models

import (
	"testing"
)

func TestHint(t *testing.T) {
	tests := []struct {
		name     string
		record   MetadataRecord
		expected string
	}{
		{
			name:     "color style and category",
			record:   MetadataRecord{Category: "Armchair", Color: "Red", Material: "Velvet"},
			expected: "red velvet armchair",
		},
		{
			name:     "duplicate words collapse",
			record:   MetadataRecord{Category: "Oak Chair", Material: "Oak", Style: "Rustic"},
			expected: "rustic oak chair",
		},
		{
			name:     "falls back to title",
			record:   MetadataRecord{Title: "The Lounger"},
			expected: "the lounger",
		},
		{
			name:     "empty record",
			record:   MetadataRecord{},
			expected: "product",
		},
		{
			name:     "error record",
			record:   ErrorRecord("timeout"),
			expected: "product",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Hint(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSpecToleratesMissingKeys(t *testing.T) {
	var record MetadataRecord

	if got := record.Spec("Material", "unknown"); got != "unknown" {
		t.Errorf("Expected default on nil specifications, got %q", got)
	}
	if got := record.CategoryOr("Product"); got != "Product" {
		t.Errorf("Expected default category, got %q", got)
	}

	record.Specifications = map[string]string{"Material": "Oak"}
	if got := record.Spec("material", ""); got != "Oak" {
		t.Errorf("Expected case-insensitive lookup to find Oak, got %q", got)
	}
}

func TestNormalize(t *testing.T) {
	record := MetadataRecord{
		Category:       "  Chair ",
		Tags:           []string{" modern ", "", "oak"},
		Specifications: map[string]string{" Legs ": " 4 ", "": "dropped"},
		PriceEstimate:  -3,
	}.Normalize()

	if record.Category != "Chair" {
		t.Errorf("Expected trimmed category, got %q", record.Category)
	}
	if len(record.Tags) != 2 || record.Tags[0] != "modern" {
		t.Errorf("Unexpected tags: %v", record.Tags)
	}
	if len(record.Specifications) != 1 || record.Specifications["Legs"] != "4" {
		t.Errorf("Unexpected specifications: %v", record.Specifications)
	}
	if record.PriceEstimate != 0 {
		t.Errorf("Expected negative estimate clamped to 0, got %v", record.PriceEstimate)
	}

	empty := MetadataRecord{}.Normalize()
	if empty.Specifications == nil || empty.Tags == nil {
		t.Error("Expected non-nil collections after Normalize")
	}
}

func TestSpecsFromAny(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected map[string]string
	}{
		{
			name:     "object",
			input:    map[string]any{"Material": "Oak", "Seats": float64(2), "Foldable": false},
			expected: map[string]string{"Material": "Oak", "Seats": "2", "Foldable": "false"},
		},
		{
			name: "array of pairs",
			input: []any{
				map[string]any{"name": "Finish", "value": "Matte"},
				map[string]any{"label": "Legs", "value": float64(4)},
				map[string]any{"value": "orphan"},
				"junk",
			},
			expected: map[string]string{"Finish": "Matte", "Legs": "4"},
		},
		{
			name:     "list value",
			input:    map[string]any{"Colors": []any{"red", "blue"}},
			expected: map[string]string{"Colors": "red, blue"},
		},
		{
			name:     "wrong shape",
			input:    "not a mapping",
			expected: map[string]string{},
		},
		{
			name:     "nil",
			input:    nil,
			expected: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SpecsFromAny(tt.input)
			if got == nil {
				t.Fatal("Expected non-nil mapping")
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, got)
			}
			for k, v := range tt.expected {
				if got[k] != v {
					t.Errorf("Expected %s=%q, got %q", k, v, got[k])
				}
			}
		})
	}
}

func TestDimensionsString(t *testing.T) {
	if got := (Dimensions{Height: 80, Width: 60.5, Depth: 75}).String(); got != "80x60.5x75 cm" {
		t.Errorf("Unexpected dimensions string: %q", got)
	}
	if got := (Dimensions{}).String(); got != "N/A" {
		t.Errorf("Expected N/A for zero dimensions, got %q", got)
	}
}
