package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/furnicon/furnicon/internal/models"
)

// Edits are the operator's changes to a draft under review.
// Nil fields leave the draft value untouched.
type Edits struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	Price       *float64           `json:"price,omitempty"`
	Stock       *int               `json:"stock,omitempty"`
	Dimensions  *models.Dimensions `json:"dimensions,omitempty"`
	// Specifications replace by key; an empty value removes the key
	Specifications map[string]string `json:"specifications,omitempty"`
	// Tags replace the whole tag list when non-nil
	Tags []string `json:"tags,omitempty"`
}

// Validate checks the edits on their own, before they touch a draft
func (e Edits) Validate() error {
	var problems []string
	if e.Title != nil && strings.TrimSpace(*e.Title) == "" {
		problems = append(problems, "title must not be empty")
	}
	if e.Price != nil && !finite(*e.Price) {
		problems = append(problems, "price must be a finite number")
	} else if e.Price != nil && *e.Price < 0 {
		problems = append(problems, "price must not be negative")
	}
	if e.Stock != nil && *e.Stock < 0 {
		problems = append(problems, "stock must not be negative")
	}
	if d := e.Dimensions; d != nil {
		for _, v := range []float64{d.Height, d.Width, d.Depth} {
			if !finite(v) || v < 1 {
				problems = append(problems, "dimensions must each be a finite number of at least 1 cm")
				break
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidEdits, strings.Join(problems, "; "))
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Apply writes the edits into d
func (e Edits) Apply(d *models.ProductDraft) {
	if e.Title != nil {
		d.Title = strings.TrimSpace(*e.Title)
	}
	if e.Description != nil {
		d.Description = strings.TrimSpace(*e.Description)
	}
	if e.Price != nil {
		d.Price = *e.Price
	}
	if e.Stock != nil {
		d.Stock = *e.Stock
	}
	if e.Dimensions != nil {
		d.Dimensions = *e.Dimensions
	}

	if len(e.Specifications) > 0 && d.Specifications == nil {
		d.Specifications = make(map[string]string, len(e.Specifications))
	}
	for k, v := range e.Specifications {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" {
			continue
		}
		if v == "" {
			delete(d.Specifications, k)
			continue
		}
		d.Specifications[k] = v
	}

	if e.Tags != nil {
		tags := make([]string, 0, len(e.Tags))
		for _, t := range e.Tags {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		d.Tags = tags
	}
}
