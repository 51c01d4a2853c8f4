package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/furnicon/furnicon/internal/models"
	"github.com/furnicon/furnicon/internal/pipeline"
	"github.com/furnicon/furnicon/internal/storage"
)

type sessionSummary struct {
	ID        string         `json:"id"`
	Stage     pipeline.Stage `json:"stage"`
	CreatedAt time.Time      `json:"created_at"`
}

// sessionResponse is a pipeline snapshot plus the URLs of the draft's images
type sessionResponse struct {
	ID string `json:"id"`
	pipeline.Snapshot
	ImageURLs []string `json:"image_urls"`
}

func newSessionResponse(session *storage.Session, snap pipeline.Snapshot) sessionResponse {
	resp := sessionResponse{ID: session.ID, Snapshot: snap, ImageURLs: []string{}}
	if snap.Draft != nil && snap.Draft.Asset != nil {
		resp.ImageURLs = imageURLs("/api/sessions/"+session.ID, len(snap.Draft.Variations))
	}
	return resp
}

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.sessionStore.Create(h.newPipeline())
	slog.Info("Created operator session", "session_id", session.ID)
	h.writeJSONStatus(w, http.StatusCreated, newSessionResponse(session, session.Pipeline.Snapshot()))
}

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.List()
	sessionList := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		sessionList = append(sessionList, sessionSummary{
			ID:        s.ID,
			Stage:     s.Pipeline.Stage(),
			CreatedAt: s.CreatedAt,
		})
	}
	h.writeJSON(w, sessionList)
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, newSessionResponse(session, session.Pipeline.Snapshot()))
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessionStore.Delete(r.PathValue("id")) {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var edits pipeline.Edits
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&edits); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	snap, err := session.Pipeline.Submit(r.Context(), edits)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	slog.Info("Session published entry", "session_id", session.ID, "entry_id", snap.Draft.EntryID)
	h.writeJSON(w, newSessionResponse(session, snap))
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, newSessionResponse(session, session.Pipeline.Reset()))
}

// HandleDraftImage serves the images of the draft under review: 0 is the upload, 1..N the variations
func (h *Handler) HandleDraftImage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	n, err := imageIndex(r)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	draft := session.Pipeline.Snapshot().Draft
	if draft == nil || draft.Asset == nil {
		h.writeError(w, "Session has no draft", http.StatusNotFound)
		return
	}

	var img models.Image
	found := false
	switch {
	case n == 0:
		img, found = draft.Asset.Original, true
	case n <= len(draft.Variations):
		img, found = draft.Variations[n-1], true
	}
	h.writeImage(w, r, img, found)
}
