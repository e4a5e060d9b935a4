package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"lingofocus/internal/importer"
	"lingofocus/internal/models"
	"lingofocus/internal/service"
	"lingofocus/internal/validation"
)

type categoriesResponse struct {
	Categories  []service.CategoryCount `json:"categories"`
	Topics      []string                `json:"topics"`
	CanGenerate bool                    `json:"canGenerate"`
	BatchSizes  []int                   `json:"batchSizes"`
}

type generateRequest struct {
	Category string `json:"category"`
	Topic    string `json:"topic"`
}

type importResponse struct {
	Collection models.Collection `json:"collection"`
	Processed  int               `json:"processed"`
	Skipped    int               `json:"skipped"`
	Errors     []string          `json:"errors,omitempty"`
}

// Categories lists vocabulary categories with their sizes
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	counts, err := h.collections.CategoryCounts(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	render.JSON(w, r, categoriesResponse{
		Categories:  counts,
		Topics:      h.collections.SuggestedTopics(),
		CanGenerate: h.collections.CanGenerate(),
		BatchSizes:  models.BatchSizePresets,
	})
}

// ListCollections lists collections, optionally of one category
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	var category models.Category
	if raw := r.URL.Query().Get("category"); raw != "" {
		c, err := models.ParseCategory(raw)
		if err != nil {
			respondWithError(w, r, http.StatusBadRequest, "Unknown category", err)
			return
		}
		category = c
	}

	collections, err := h.collections.List(r.Context(), category)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if collections == nil {
		collections = []models.Collection{}
	}
	render.JSON(w, r, collections)
}

func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	c, err := h.collections.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	render.JSON(w, r, c)
}

// DeleteCollection removes a collection and its response sets
func (h *Handler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := h.collections.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListResponses(w http.ResponseWriter, r *http.Request) {
	responses, err := h.collections.Responses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if responses == nil {
		responses = []models.Collection{}
	}
	render.JSON(w, r, responses)
}

// GenerateCollection creates a vocabulary collection for a topic
func (h *Handler) GenerateCollection(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidRequest, err)
		return
	}
	if err := validation.ValidateTopic(req.Topic); err != nil {
		respondWithError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}
	category, err := models.ParseCategory(req.Category)
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Unknown category", err)
		return
	}

	c, err := h.collections.Generate(r.Context(), category, req.Topic)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.warmAudio(c)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, c)
}

// GenerateResponses creates a response set for a vocabulary collection
func (h *Handler) GenerateResponses(w http.ResponseWriter, r *http.Request) {
	c, err := h.collections.GenerateResponses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.warmAudio(c)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, c)
}

// ImportCollection reads an uploaded spreadsheet into a custom collection
func (h *Handler) ImportCollection(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "Failed to parse upload", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, "No file uploaded", err)
		return
	}
	defer file.Close()

	topic := r.FormValue("topic")
	if strings.TrimSpace(topic) != "" {
		if err := validation.ValidateTopic(topic); err != nil {
			respondWithError(w, r, http.StatusBadRequest, err.Error(), err)
			return
		}
	}

	c, result, err := h.collections.Import(r.Context(), file, header.Filename, topic)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.warmAudio(c)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newImportResponse(c, result))
}

func newImportResponse(c models.Collection, result *importer.ImportResult) importResponse {
	resp := importResponse{Collection: c}
	if result != nil {
		resp.Processed = result.TotalProcessed
		resp.Skipped = result.Skipped
		resp.Errors = result.Errors
	}
	return resp
}
