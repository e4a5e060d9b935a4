package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"lingofocus/internal/audio"
	"lingofocus/internal/models"
	"lingofocus/internal/validation"
)

// Audio serves the cached MP3 for a piece of text, synthesizing it on first use
func (h *Handler) Audio(w http.ResponseWriter, r *http.Request) {
	if h.tts == nil {
		respondWithError(w, r, http.StatusServiceUnavailable, ErrSpeechUnavailable, nil)
		return
	}

	text := strings.TrimSpace(r.URL.Query().Get("text"))
	if err := validation.ValidateSpokenText(text); err != nil {
		respondWithError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}

	var lang string
	switch strings.ToLower(r.URL.Query().Get("lang")) {
	case "", "en", strings.ToLower(audio.LangEnglish):
		lang = audio.LangEnglish
	case "ko", strings.ToLower(audio.LangKorean):
		lang = audio.LangKorean
	default:
		respondWithError(w, r, http.StatusBadRequest, "Unsupported language", nil)
		return
	}

	path, err := h.tts.Synthesize(r.Context(), text, lang)
	if err != nil {
		respondWithError(w, r, http.StatusBadGateway, "Failed to synthesize speech", err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}

// warmAudio synthesizes prompts and answers of a new collection in the
// background so the first session does not wait on the network
func (h *Handler) warmAudio(c models.Collection) {
	if h.tts == nil || len(c.Items) == 0 {
		return
	}

	prompts := make([]string, 0, len(c.Items))
	answers := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		prompts = append(prompts, item.SpokenPrompt())
		answers = append(answers, item.Answer)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		for lang, texts := range map[string][]string{audio.LangKorean: prompts, audio.LangEnglish: answers} {
			if _, err := h.tts.BatchSynthesize(ctx, texts, lang); err != nil {
				h.log.Warn().Err(err).Str("collection", c.ID).Str("lang", lang).Msg("failed to warm audio cache")
				return
			}
		}
		h.log.Debug().Str("collection", c.ID).Int("items", len(c.Items)).Msg("audio cache warmed")
	}()
}
