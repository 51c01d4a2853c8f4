package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/furnicon/furnicon/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Export formats
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatParquet = "parquet"
)

// ExportSpec is one specification of an exported entry
type ExportSpec struct {
	Name  string `json:"name" yaml:"name" parquet:"name"`
	Value string `json:"value" yaml:"value" parquet:"value"`
}

// EntryRow is the flat, image-free shape of an entry used by every export format
type EntryRow struct {
	ID             int          `json:"id" yaml:"id" parquet:"id"`
	Title          string       `json:"title" yaml:"title" parquet:"title"`
	Description    string       `json:"description" yaml:"description" parquet:"description"`
	Category       string       `json:"category" yaml:"category" parquet:"category"`
	Material       string       `json:"material" yaml:"material" parquet:"material"`
	Color          string       `json:"color" yaml:"color" parquet:"color"`
	Price          float64      `json:"price" yaml:"price" parquet:"price"`
	Stock          int          `json:"stock" yaml:"stock" parquet:"stock"`
	Height         float64      `json:"height_cm" yaml:"height_cm" parquet:"height_cm"`
	Width          float64      `json:"width_cm" yaml:"width_cm" parquet:"width_cm"`
	Depth          float64      `json:"depth_cm" yaml:"depth_cm" parquet:"depth_cm"`
	Specifications []ExportSpec `json:"specifications" yaml:"specifications" parquet:"specifications,list"`
	Tags           []string     `json:"tags" yaml:"tags" parquet:"tags,list"`
	Filename       string       `json:"filename" yaml:"filename" parquet:"filename"`
	ImageCount     int          `json:"image_count" yaml:"image_count" parquet:"image_count"`
	PublishedAt    string       `json:"published_at" yaml:"published_at" parquet:"published_at"`
}

// Row flattens an entry. Specifications are sorted by name so exports are stable.
func Row(e models.CatalogEntry) EntryRow {
	specs := make([]ExportSpec, 0, len(e.Specifications))
	for k, v := range e.Specifications {
		specs = append(specs, ExportSpec{Name: k, Value: v})
	}
	slices.SortFunc(specs, func(a, b ExportSpec) int { return strings.Compare(a.Name, b.Name) })

	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}

	return EntryRow{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		Category:       e.Category,
		Material:       e.Material,
		Color:          e.Color,
		Price:          e.Price,
		Stock:          e.Stock,
		Height:         e.Dimensions.Height,
		Width:          e.Dimensions.Width,
		Depth:          e.Dimensions.Depth,
		Specifications: specs,
		Tags:           tags,
		Filename:       e.Filename,
		ImageCount:     len(e.Variations) + 1,
		PublishedAt:    e.PublishedAt.Format(time.RFC3339),
	}
}

func rows(entries []models.CatalogEntry) []EntryRow {
	out := make([]EntryRow, 0, len(entries))
	for _, e := range entries {
		out = append(out, Row(e))
	}
	return out
}

// ContentType returns the MIME type of an export format
func ContentType(format string) string {
	switch format {
	case FormatYAML, "yml":
		return "application/yaml"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "application/json"
	}
}

// Export writes entries to w in the given format
func Export(w io.Writer, format string, entries []models.CatalogEntry) error {
	switch format {
	case "", FormatJSON:
		return WriteJSON(w, entries)
	case FormatYAML, "yml":
		return WriteYAML(w, entries)
	case FormatParquet:
		return WriteParquet(w, entries)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

func WriteJSON(w io.Writer, entries []models.CatalogEntry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows(entries)); err != nil {
		return fmt.Errorf("failed to encode catalog as json: %w", err)
	}
	return nil
}

func WriteYAML(w io.Writer, entries []models.CatalogEntry) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(struct {
		Entries []EntryRow `yaml:"entries"`
	}{Entries: rows(entries)}); err != nil {
		return fmt.Errorf("failed to encode catalog as yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush yaml encoder: %w", err)
	}
	return nil
}

func WriteParquet(w io.Writer, entries []models.CatalogEntry) error {
	writer := parquet.NewGenericWriter[EntryRow](w)
	if _, err := writer.Write(rows(entries)); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
