package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type startSessionRequest struct {
	CollectionID string `json:"collectionId"`
}

// StartSession replaces the active session with one over a collection
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidRequest, err)
		return
	}
	if strings.TrimSpace(req.CollectionID) == "" {
		respondWithError(w, r, http.StatusBadRequest, "collectionId is required", nil)
		return
	}

	active, err := h.study.Start(r.Context(), req.CollectionID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, active)
}

func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	active, err := h.study.Current()
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	render.JSON(w, r, active)
}

// ControlSession applies pause, resume, next, previous or abort
func (h *Handler) ControlSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.study.Control(chi.URLParam(r, "action"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	render.JSON(w, r, state)
}

func (h *Handler) SessionSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.study.Summary()
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.study.Settings(r.Context()))
}

// UpdateSettings stores new timing settings; out of range delays are clamped
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	settings := h.study.Settings(r.Context())
	if err := render.DecodeJSON(r.Body, &settings); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidRequest, err)
		return
	}

	saved, err := h.study.UpdateSettings(r.Context(), settings)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	render.JSON(w, r, saved)
}
