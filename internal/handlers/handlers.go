// Package handlers exposes the study services as a JSON API.
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"lingofocus/internal/audio"
	"lingofocus/internal/logging"
	"lingofocus/internal/security"
	"lingofocus/internal/service"
)

// Deps are the services behind the API. Email, TTS, Tokens and Limiter may be nil.
type Deps struct {
	Collections *service.CollectionService
	Study       *service.StudyService
	Backup      *service.BackupService
	Email       *service.EmailService
	EmailTo     string
	TTS         *audio.TTSService
	Tokens      *security.TokenIssuer
	Limiter     *security.RateLimiter
	Logger      zerolog.Logger
}

// Handler serves every API route
type Handler struct {
	collections *service.CollectionService
	study       *service.StudyService
	backup      *service.BackupService
	email       *service.EmailService
	emailTo     string
	tts         *audio.TTSService
	tokens      *security.TokenIssuer
	limiter     *security.RateLimiter
	log         zerolog.Logger
}

func New(d Deps) *Handler {
	return &Handler{
		collections: d.Collections,
		study:       d.Study,
		backup:      d.Backup,
		email:       d.Email,
		emailTo:     d.EmailTo,
		tts:         d.TTS,
		tokens:      d.Tokens,
		limiter:     d.Limiter,
		log:         logging.Component(d.Logger, "http"),
	}
}

// Routes builds the router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(RequireToken(h.tokens))

		r.Get("/categories", h.Categories)

		r.Route("/collections", func(r chi.Router) {
			r.Get("/", h.ListCollections)
			r.Post("/import", h.ImportCollection)
			r.With(h.rateLimited).Post("/generate", h.GenerateCollection)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetCollection)
				r.Delete("/", h.DeleteCollection)
				r.Get("/responses", h.ListResponses)
				r.With(h.rateLimited).Post("/responses/generate", h.GenerateResponses)
			})
		})

		r.Route("/session", func(r chi.Router) {
			r.Post("/", h.StartSession)
			r.Get("/", h.CurrentSession)
			r.Get("/summary", h.SessionSummary)
			r.Post("/{action}", h.ControlSession)
		})

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)

		r.Get("/backup", h.DownloadBackup)
		r.Post("/backup", h.UploadBackup)
		r.Post("/backup/email", h.EmailBackup)
		r.Post("/reset", h.Reset)

		r.Get("/audio", h.Audio)
	})

	return r
}

// rateLimited applies the limiter when one is configured
func (h *Handler) rateLimited(next http.Handler) http.Handler {
	if h.limiter == nil {
		return next
	}
	return RateLimit(h.limiter)(next)
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
