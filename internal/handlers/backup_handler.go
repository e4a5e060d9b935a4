package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"lingofocus/internal/service"
	"lingofocus/internal/validation"
)

type emailRequest struct {
	To string `json:"to"`
}

// DownloadBackup streams a snapshot of all study data as an attachment
func (h *Handler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	name, blob, err := h.backup.Snapshot(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(blob)
}

// UploadBackup restores a snapshot sent either as a multipart "file" field
// or as the raw request body
func (h *Handler) UploadBackup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	var src io.Reader = r.Body
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			respondWithError(w, r, http.StatusBadRequest, "Failed to parse upload", err)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			respondWithError(w, r, http.StatusBadRequest, "No file uploaded", err)
			return
		}
		defer file.Close()
		src = file
	}

	if err := h.backup.ImportFromReader(r.Context(), src); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": "imported"})
}

// EmailBackup mails a snapshot to the given or configured address
func (h *Handler) EmailBackup(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			respondWithError(w, r, http.StatusBadRequest, ErrInvalidRequest, err)
			return
		}
	}
	to := strings.TrimSpace(req.To)
	if to == "" {
		to = h.emailTo
	}
	if !h.email.IsEnabled() {
		respondWithServiceError(w, r, service.ErrEmailDisabled)
		return
	}
	if err := validation.ValidateEmail(to); err != nil {
		respondWithError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}

	name, blob, err := h.backup.Snapshot(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if err := h.email.SendBackup(r.Context(), to, name, blob); err != nil {
		respondWithError(w, r, http.StatusBadGateway, "Failed to send email", err)
		return
	}
	render.JSON(w, r, map[string]string{"status": "sent", "file": name})
}

// Reset clears collections and counts; requires ?confirm=yes
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "yes" {
		respondWithError(w, r, http.StatusBadRequest, "Reset must be confirmed with confirm=yes", nil)
		return
	}
	if err := h.backup.Reset(r.Context()); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	h.study.Stop()
	render.JSON(w, r, map[string]string{"status": "reset"})
}
