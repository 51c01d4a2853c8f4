package models

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Strategy identifies which generation tier produced (or failed to produce) a view
type Strategy int

const (
	StrategyNone Strategy = iota
	// StrategyImageConditioned sends the source image with the view instruction
	StrategyImageConditioned
	// StrategyTextConditioned sends only text: the view instruction plus the hint
	StrategyTextConditioned
)

func (s Strategy) String() string {
	switch s {
	case StrategyImageConditioned:
		return "image_conditioned"
	case StrategyTextConditioned:
		return "text_conditioned"
	default:
		return "none"
	}
}

// MarshalText renders the strategy name in JSON and YAML output
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// GenerationAttempt is the outcome of one strategy for one target view
type GenerationAttempt struct {
	ViewIndex int      `json:"view_index"`
	View      string   `json:"view"`
	Strategy  Strategy `json:"strategy"`
	Succeeded bool     `json:"succeeded"`
	Image     *Image   `json:"image,omitempty"`
	Err       string   `json:"error,omitempty"`
}

// ProductDraft is the working record for one ingestion run
type ProductDraft struct {
	Asset      *RawAsset      `json:"asset"`
	Metadata   MetadataRecord `json:"metadata"`
	Hint       string         `json:"hint"`
	Variations []Image        `json:"variations"`

	// Operator-confirmed commercial fields, seeded from the metadata
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Price          float64           `json:"price"`
	Stock          int               `json:"stock"`
	Dimensions     Dimensions        `json:"dimensions"`
	Specifications map[string]string `json:"specifications"`
	Tags           []string          `json:"tags"`

	Attempts       []GenerationAttempt `json:"attempts,omitempty"`
	SourceFallback bool                `json:"source_fallback"`
	EntryID        int                 `json:"entry_id,omitempty"`
}

// Clone returns a copy whose maps and slices are not shared with d
func (d *ProductDraft) Clone() *ProductDraft {
	if d == nil {
		return nil
	}
	c := *d
	c.Metadata.Specifications = maps.Clone(d.Metadata.Specifications)
	c.Metadata.Tags = slices.Clone(d.Metadata.Tags)
	c.Variations = slices.Clone(d.Variations)
	c.Specifications = maps.Clone(d.Specifications)
	c.Tags = slices.Clone(d.Tags)
	c.Attempts = slices.Clone(d.Attempts)
	return &c
}

// Fields returns the publishable portion of the draft
func (d *ProductDraft) Fields() EntryFields {
	f := EntryFields{
		Title:          d.Title,
		Description:    d.Description,
		Category:       d.Metadata.Category,
		Material:       d.Metadata.Material,
		Color:          d.Metadata.Color,
		Price:          d.Price,
		Stock:          d.Stock,
		Dimensions:     d.Dimensions,
		Specifications: maps.Clone(d.Specifications),
		Tags:           slices.Clone(d.Tags),
		Variations:     slices.Clone(d.Variations),
	}
	if d.Asset != nil {
		f.Original = d.Asset.Original
		f.Filename = d.Asset.Filename
	}
	if f.Specifications == nil {
		f.Specifications = map[string]string{}
	}
	return f
}

// String renders dimensions the way the storefront shows them, e.g. "80x60x75 cm"
func (d Dimensions) String() string {
	if d.IsZero() {
		return "N/A"
	}
	return fmt.Sprintf("%sx%sx%s cm", formatCM(d.Height), formatCM(d.Width), formatCM(d.Depth))
}

func formatCM(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
