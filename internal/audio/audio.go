// Package audio produces spoken prompts and answers plus short cue sounds.
package audio

import (
	"context"
	"strings"
)

// Cue is a short non-speech sound
type Cue string

const (
	CuePop     Cue = "pop"     // item changed
	CueTick    Cue = "tick"    // one second of countdown
	CueSuccess Cue = "success" // session complete
)

// Speech languages
const (
	LangKorean  = "ko-KR"
	LangEnglish = "en-US"
)

// Engine renders audio on the host. Say blocks until the utterance has
// finished or ctx is cancelled.
type Engine interface {
	Available() bool
	Say(ctx context.Context, text, lang string) error
	Cue(ctx context.Context, kind Cue) error
}

// baseLanguage turns "ko-KR" into "ko"
func baseLanguage(lang string) string {
	base, _, _ := strings.Cut(strings.TrimSpace(lang), "-")
	if base == "" {
		return "en"
	}
	return strings.ToLower(base)
}
