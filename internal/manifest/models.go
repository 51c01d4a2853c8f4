package manifest

import (
	"github.com/furnicon/furnicon/internal/models"
	"github.com/furnicon/furnicon/internal/pipeline"
)

// Row is one product of a batch manifest: the photo to ingest and the commercial
// fields the operator would otherwise type in during review.
// Nil fields keep the value seeded from analysis.
type Row struct {
	ImagePath   string   `json:"image_path" parquet:"image_path"`
	Title       *string  `json:"title,omitempty" parquet:"title,optional"`
	Description *string  `json:"description,omitempty" parquet:"description,optional"`
	Price       *float64 `json:"price,omitempty" parquet:"price,optional"`
	Stock       *int64   `json:"stock,omitempty" parquet:"stock,optional"`

	// Dimensions in centimetres; all three must be present to apply
	Height *float64 `json:"height_cm,omitempty" parquet:"height_cm,optional"`
	Width  *float64 `json:"width_cm,omitempty" parquet:"width_cm,optional"`
	Depth  *float64 `json:"depth_cm,omitempty" parquet:"depth_cm,optional"`

	Specs []Spec   `json:"specs,omitempty" parquet:"specs,list"`
	Tags  []string `json:"tags,omitempty" parquet:"tags,list"`
}

// Spec is a single specification override
type Spec struct {
	Name  string `json:"name" parquet:"name"`
	Value string `json:"value" parquet:"value"`
}

// Edits converts the row into review edits
func (r Row) Edits() pipeline.Edits {
	e := pipeline.Edits{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
	}
	if r.Stock != nil {
		stock := int(*r.Stock)
		e.Stock = &stock
	}
	if r.Height != nil && r.Width != nil && r.Depth != nil {
		e.Dimensions = &models.Dimensions{Height: *r.Height, Width: *r.Width, Depth: *r.Depth}
	}
	if len(r.Specs) > 0 {
		e.Specifications = make(map[string]string, len(r.Specs))
		for _, s := range r.Specs {
			e.Specifications[s.Name] = s.Value
		}
	}
	if len(r.Tags) > 0 {
		e.Tags = r.Tags
	}
	return e
}
