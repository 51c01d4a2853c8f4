package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

func ptr[T any](v T) *T { return &v }

func TestNewLoader(t *testing.T) {
	path := "./manifest.parquet"
	loader := NewLoader(path)

	if loader.path != path {
		t.Errorf("Expected path %s, got %s", path, loader.path)
	}
}

func TestLoadJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.jsonl")
	content := `{"image_path":"chair.jpg","title":"Oak Chair","price":199.99,"stock":4,"height_cm":80,"width_cm":45,"depth_cm":50,"specs":[{"name":"Material","value":"Oak"}]}
# comment lines are skipped

{"image_path":"/abs/lamp.png","tags":["lamp","brass"]}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	rows, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	if rows[0].ImagePath != filepath.Join(dir, "chair.jpg") {
		t.Errorf("Expected relative path resolved, got %s", rows[0].ImagePath)
	}
	if rows[1].ImagePath != "/abs/lamp.png" {
		t.Errorf("Expected absolute path kept, got %s", rows[1].ImagePath)
	}

	e := rows[0].Edits()
	if *e.Title != "Oak Chair" || *e.Price != 199.99 || *e.Stock != 4 {
		t.Errorf("Unexpected edits: %+v", e)
	}
	if e.Dimensions == nil || e.Dimensions.Height != 80 {
		t.Errorf("Expected dimensions, got %+v", e.Dimensions)
	}
	if e.Specifications["Material"] != "Oak" {
		t.Errorf("Expected spec override, got %v", e.Specifications)
	}

	e = rows[1].Edits()
	if e.Title != nil || e.Price != nil || e.Dimensions != nil {
		t.Errorf("Expected absent fields to stay nil, got %+v", e)
	}
	if len(e.Tags) != 2 {
		t.Errorf("Expected 2 tags, got %v", e.Tags)
	}
}

func TestLoadParquet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.parquet")
	rows := []Row{
		{ImagePath: "sofa.jpg", Title: ptr("Linen Sofa"), Price: ptr(899.0), Specs: []Spec{{Name: "Seats", Value: "3"}}},
		{ImagePath: "stool.jpg", Stock: ptr(int64(2))},
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("failed to write parquet: %v", err)
	}

	got, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(got))
	}
	if got[0].Title == nil || *got[0].Title != "Linen Sofa" {
		t.Errorf("Expected title, got %v", got[0].Title)
	}
	if len(got[0].Specs) != 1 || got[0].Specs[0].Value != "3" {
		t.Errorf("Expected specs, got %+v", got[0].Specs)
	}
	if got[1].Stock == nil || *got[1].Stock != 2 {
		t.Errorf("Expected stock 2, got %v", got[1].Stock)
	}
	if got[1].Title != nil {
		t.Errorf("Expected missing title to stay nil, got %q", *got[1].Title)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "unsupported extension", file: "batch.csv", content: "image_path\nchair.jpg\n"},
		{name: "malformed line", file: "bad.jsonl", content: "{\"image_path\": \n"},
		{name: "missing image path", file: "empty.jsonl", content: "{\"title\":\"Chair\"}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write manifest: %v", err)
			}
			if _, err := NewLoader(path).Load(); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestLoadCorruptParquet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.parquet")

	rows := make([]Row, 2000)
	for i := range rows {
		rows[i] = Row{ImagePath: fmt.Sprintf("photo_%04d.jpg", i), Title: ptr(fmt.Sprintf("Product %d", i))}
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("failed to write parquet: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read parquet: %v", err)
	}
	for i := len(data) / 3; i < 2*len(data)/3; i++ {
		data[i] = 0xFF
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to rewrite parquet: %v", err)
	}

	got, err := NewLoader(path).Load()
	if err == nil {
		t.Fatalf("Expected an error for a corrupt manifest, got %d rows", len(got))
	}
	if got != nil {
		t.Errorf("Expected no rows on error, got %d", len(got))
	}
}

func TestIndex(t *testing.T) {
	idx := Index([]Row{{ImagePath: "/photos/a/chair.jpg"}, {ImagePath: "lamp.png"}})
	if _, ok := idx["chair.jpg"]; !ok {
		t.Error("Expected chair.jpg in index")
	}
	if _, ok := idx["lamp.png"]; !ok {
		t.Error("Expected lamp.png in index")
	}
}
