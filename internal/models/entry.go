package models

import (
	"maps"
	"slices"
	"time"
)

// EntryFields is everything a catalog entry carries apart from its identity
type EntryFields struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Category       string            `json:"category"`
	Material       string            `json:"material"`
	Color          string            `json:"color"`
	Price          float64           `json:"price"`
	Stock          int               `json:"stock"`
	Dimensions     Dimensions        `json:"dimensions"`
	Specifications map[string]string `json:"specifications"`
	Tags           []string          `json:"tags"`
	Filename       string            `json:"filename"`
	Original       Image             `json:"original"`
	Variations     []Image           `json:"variations"`
}

// Clone returns a copy whose maps and slices are not shared with f.
// Image bytes are shared; they are never written after upload.
func (f EntryFields) Clone() EntryFields {
	f.Specifications = maps.Clone(f.Specifications)
	if f.Specifications == nil {
		f.Specifications = map[string]string{}
	}
	f.Tags = slices.Clone(f.Tags)
	f.Variations = slices.Clone(f.Variations)
	return f
}

// CatalogEntry is a published, immutable catalog record
type CatalogEntry struct {
	ID int `json:"id"`
	EntryFields
	PublishedAt time.Time `json:"published_at"`
}

// Clone returns a copy that callers may modify freely
func (e CatalogEntry) Clone() CatalogEntry {
	e.EntryFields = e.EntryFields.Clone()
	return e
}

// Image returns the nth image of the entry's gallery: 0 is the original upload,
// 1..N are the variations.
func (e CatalogEntry) Image(n int) (Image, bool) {
	if n == 0 {
		return e.Original, !e.Original.Empty()
	}
	if n < 0 || n > len(e.Variations) {
		return Image{}, false
	}
	return e.Variations[n-1], true
}
