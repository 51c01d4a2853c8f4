package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/furnicon/furnicon/internal/images"
	"github.com/furnicon/furnicon/internal/storage"
)

// HandleUpload accepts a multipart file or a JSON {"image_url": ...} body and runs the
// session's pipeline on it. The response is returned once the draft is ready for review.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var (
		data     []byte
		filename string
		err      error
	)
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		data, filename, err = h.readURLUpload(r)
	} else {
		data, filename, err = h.readFileUpload(w, r)
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.Is(err, images.ErrTooLarge) || errors.As(err, &maxErr) {
			h.writeError(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		if errors.Is(err, images.ErrHostNotAllowed) {
			h.writeError(w, err.Error(), http.StatusForbidden)
			return
		}
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.process(w, r, session, filename, data)
}

func (h *Handler) readURLUpload(r *http.Request) ([]byte, string, error) {
	var request struct {
		ImageURL string `json:"image_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return nil, "", fmt.Errorf("invalid JSON: %w", err)
	}
	if request.ImageURL == "" {
		return nil, "", fmt.Errorf("image_url is required")
	}
	return h.fetcher.Fetch(r.Context(), request.ImageURL)
}

func (h *Handler) readFileUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	// multipart overhead on top of the image itself
	r.Body = http.MaxBytesReader(w, r.Body, images.MaxUploadBytes+1024*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			return nil, "", fmt.Errorf("failed to read file: %w", err)
		}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, images.MaxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file contents: %w", err)
	}
	if len(data) > images.MaxUploadBytes {
		return nil, "", fmt.Errorf("%w (max 10MB)", images.ErrTooLarge)
	}
	return data, header.Filename, nil
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request, session *storage.Session, filename string, data []byte) {
	asset, err := images.Decode(filename, data)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	slog.Info("Processing upload", "session_id", session.ID, "filename", filename, "bytes", len(data))

	// processing outlives a dropped connection; only a reset cancels it
	snap, err := session.Pipeline.Upload(context.WithoutCancel(r.Context()), asset)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	h.writeJSON(w, newSessionResponse(session, snap))
}
