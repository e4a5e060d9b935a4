package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// PlayerEngine speaks through the TTS cache and an external audio player
// command such as "mpg123 -q" or "afplay".
type PlayerEngine struct {
	tts     *TTSService
	command []string
	cueDir  string
	ok      bool
}

// NewPlayerEngine returns an engine that is unavailable when player is empty
// or cannot be found on PATH
func NewPlayerEngine(tts *TTSService, player, cueDir string) *PlayerEngine {
	e := &PlayerEngine{tts: tts, command: strings.Fields(player), cueDir: cueDir}
	if len(e.command) > 0 && tts != nil {
		_, err := exec.LookPath(e.command[0])
		e.ok = err == nil
	}
	return e
}

func (e *PlayerEngine) Available() bool {
	return e.ok
}

func (e *PlayerEngine) Say(ctx context.Context, text, lang string) error {
	path, err := e.tts.Synthesize(ctx, text, lang)
	if err != nil {
		return err
	}
	return e.play(ctx, path)
}

// Cue plays <cueDir>/<kind>.wav; a missing file is silently skipped
func (e *PlayerEngine) Cue(ctx context.Context, kind Cue) error {
	if e.cueDir == "" {
		return nil
	}
	path := filepath.Join(e.cueDir, string(kind)+".wav")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return e.play(ctx, path)
}

func (e *PlayerEngine) play(ctx context.Context, path string) error {
	if !e.ok {
		return fmt.Errorf("audio player unavailable")
	}
	args := append(append([]string{}, e.command[1:]...), path)
	cmd := exec.CommandContext(ctx, e.command[0], args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w", e.command[0], err)
	}
	return nil
}
