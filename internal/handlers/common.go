package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/furnicon/furnicon/internal/catalog"
	"github.com/furnicon/furnicon/internal/images"
	"github.com/furnicon/furnicon/internal/models"
	"github.com/furnicon/furnicon/internal/pipeline"
	"github.com/furnicon/furnicon/internal/storage"
)

// PipelineFactory builds the pipeline for a new operator session
type PipelineFactory func() *pipeline.Pipeline

type Handler struct {
	sessionStore *storage.SessionStore
	catalog      *catalog.Store
	newPipeline  PipelineFactory
	fetcher      *images.Fetcher
}

func New(store *catalog.Store, newPipeline PipelineFactory) *Handler {
	return &Handler{
		sessionStore: storage.New(),
		catalog:      store,
		newPipeline:  newPipeline,
		fetcher:      images.NewFetcher(),
	}
}

// AllowImageHosts limits image_url uploads to the given hosts and their subdomains
func (h *Handler) AllowImageHosts(hosts []string) {
	h.fetcher.AllowedHosts = hosts
}

// Routes registers every endpoint on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", h.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions", h.HandleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.HandleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/upload", h.HandleUpload)
	mux.HandleFunc("POST /api/sessions/{id}/submit", h.HandleSubmit)
	mux.HandleFunc("POST /api/sessions/{id}/reset", h.HandleReset)
	mux.HandleFunc("GET /api/sessions/{id}/images/{n}", h.HandleDraftImage)
	mux.HandleFunc("GET /api/catalog", h.HandleListCatalog)
	mux.HandleFunc("GET /api/catalog/export", h.HandleExport)
	mux.HandleFunc("GET /api/catalog/{id}", h.HandleGetEntry)
	mux.HandleFunc("GET /api/catalog/{id}/images/{n}", h.HandleEntryImage)
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Warn(message, "status", code)
	}
	http.Error(w, message, code)
}

// writePipelineError maps pipeline errors onto HTTP statuses
func (h *Handler) writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidTransition), errors.Is(err, pipeline.ErrRunCancelled):
		h.writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, pipeline.ErrInvalidEdits):
		h.writeError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, images.ErrTooLarge):
		h.writeError(w, err.Error(), http.StatusRequestEntityTooLarge)
	case errors.Is(err, images.ErrNotImage):
		h.writeError(w, err.Error(), http.StatusUnsupportedMediaType)
	default:
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*storage.Session, bool) {
	session, exists := h.sessionStore.Get(r.PathValue("id"))
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func (h *Handler) writeImage(w http.ResponseWriter, r *http.Request, img models.Image, ok bool) {
	if !ok || img.Empty() {
		h.writeError(w, "Image not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	if _, err := w.Write(img.Data); err != nil {
		slog.Error("Unable to write image", "path", r.URL.Path, "err", err)
	}
}

func imageIndex(r *http.Request) (int, error) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid image index %q", r.PathValue("n"))
	}
	return n, nil
}

func imageURLs(prefix string, variations int) []string {
	urls := make([]string, 0, variations+1)
	for i := 0; i <= variations; i++ {
		urls = append(urls, fmt.Sprintf("%s/images/%d", prefix, i))
	}
	return urls
}
