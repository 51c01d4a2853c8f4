package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/furnicon/furnicon/internal/catalog"
	"github.com/furnicon/furnicon/internal/models"
)

// listing is the storefront view of an entry: no image bytes, just where to get them
type listing struct {
	ID             int               `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Category       string            `json:"category"`
	Material       string            `json:"material"`
	Color          string            `json:"color"`
	Price          float64           `json:"price"`
	Stock          int               `json:"stock"`
	Dimensions     models.Dimensions `json:"dimensions"`
	DimensionsText string            `json:"dimensions_text"`
	Specifications map[string]string `json:"specifications"`
	Tags           []string          `json:"tags"`
	ImageURLs      []string          `json:"image_urls"`
	PublishedAt    time.Time         `json:"published_at"`
}

func newListing(e models.CatalogEntry) listing {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return listing{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		Category:       e.Category,
		Material:       e.Material,
		Color:          e.Color,
		Price:          e.Price,
		Stock:          e.Stock,
		Dimensions:     e.Dimensions,
		DimensionsText: e.Dimensions.String(),
		Specifications: e.Specifications,
		Tags:           tags,
		ImageURLs:      imageURLs(fmt.Sprintf("/api/catalog/%d", e.ID), len(e.Variations)),
		PublishedAt:    e.PublishedAt,
	}
}

func (h *Handler) HandleListCatalog(w http.ResponseWriter, r *http.Request) {
	entries := h.catalog.List()
	listings := make([]listing, 0, len(entries))
	for _, e := range entries {
		listings = append(listings, newListing(e))
	}
	h.writeJSON(w, listings)
}

func (h *Handler) getEntryOrError(w http.ResponseWriter, r *http.Request) (models.CatalogEntry, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, "Invalid entry id", http.StatusBadRequest)
		return models.CatalogEntry{}, false
	}
	entry, ok := h.catalog.Get(id)
	if !ok {
		h.writeError(w, "Entry not found", http.StatusNotFound)
		return models.CatalogEntry{}, false
	}
	return entry, true
}

func (h *Handler) HandleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.getEntryOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, newListing(entry))
}

func (h *Handler) HandleEntryImage(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.getEntryOrError(w, r)
	if !ok {
		return
	}
	n, err := imageIndex(r)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	img, found := entry.Image(n)
	h.writeImage(w, r, img, found)
}

// HandleExport writes a report of the whole catalog as json, yaml or parquet
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = catalog.FormatJSON
	}

	var buf bytes.Buffer
	if err := catalog.Export(&buf, format, h.catalog.List()); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", catalog.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="catalog.%s"`, format))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Unable to write export", "format", format, "err", err)
	}
}
