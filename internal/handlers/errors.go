package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"lingofocus/internal/ai"
	"lingofocus/internal/importer"
	"lingofocus/internal/models"
	"lingofocus/internal/service"
	"lingofocus/internal/session"
	"lingofocus/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

// respondWithError logs err with the request logger and renders userMsg as JSON
func respondWithError(w http.ResponseWriter, r *http.Request, status int, userMsg string, err error) {
	if err != nil {
		ev := zerolog.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			ev = zerolog.Ctx(r.Context()).Error()
		}
		ev.Err(err).Int("status", status).Msg(userMsg)
	}

	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: userMsg})
}

// respondWithServiceError maps domain errors onto HTTP statuses
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	respondWithError(w, r, status, msg, err)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrCollectionNotFound):
		return http.StatusNotFound, ErrCollectionNotFound
	case errors.Is(err, store.ErrProtectedCollection):
		return http.StatusForbidden, "Bundled collections cannot be deleted"
	case errors.Is(err, store.ErrParentNotFound):
		return http.StatusUnprocessableEntity, "Parent collection not found"
	case errors.Is(err, store.ErrInvalidSnapshot):
		return http.StatusBadRequest, "Invalid backup file"
	case errors.Is(err, models.ErrInvalidCollection), errors.Is(err, models.ErrInvalidKind):
		return http.StatusBadRequest, "Invalid collection"
	case errors.Is(err, importer.ErrUnsupportedFormat):
		return http.StatusBadRequest, "Unsupported file format"
	case errors.Is(err, service.ErrNothingImported):
		return http.StatusBadRequest, "No usable rows found in file"
	case errors.Is(err, service.ErrNoActiveSession):
		return http.StatusNotFound, ErrNoSession
	case errors.Is(err, service.ErrUnknownAction):
		return http.StatusBadRequest, "Unknown session action"
	case errors.Is(err, session.ErrNotRunning):
		return http.StatusConflict, "Session is not running"
	case errors.Is(err, service.ErrGeneratorUnavailable):
		return http.StatusServiceUnavailable, ErrGenerationUnavailable
	case errors.Is(err, service.ErrEmailDisabled):
		return http.StatusServiceUnavailable, "Email is not configured"
	case errors.Is(err, ai.ErrEmptyResponse):
		return http.StatusBadGateway, "The generator returned no items"
	default:
		return http.StatusInternalServerError, ErrInternalServerError
	}
}
