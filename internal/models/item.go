package models

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"
)

// ChunkSeparator splits a pattern-drill prompt into its word-order chunks
const ChunkSeparator = "/"

const (
	longPromptRunes = 50
	longAnswerRunes = 40
)

// Item is one prompt/answer flashcard as it is persisted inside a collection
type Item struct {
	ID      string `json:"id"`
	Prompt  string `json:"prompt"`  // Korean
	Answer  string `json:"answer"`  // English
	Tag     string `json:"tag"`     // part of speech or "pattern"
	Example string `json:"example"` // optional, display only
}

// Card is a session copy of an Item annotated with its current review count.
// The count lives only in memory; the store is the source of truth.
type Card struct {
	Item
	ReviewCount int `json:"reviewCount"`
}

// ItemID derives a stable identifier from an item's content so the same
// prompt/answer pair inside the same scope always maps to the same review count.
func ItemID(scope, prompt, answer string) string {
	sum := blake2b.Sum256([]byte(strings.TrimSpace(prompt) + "\x00" + strings.TrimSpace(answer)))
	return scope + "-" + hex.EncodeToString(sum[:])[:16]
}

// Normalize trims surrounding whitespace from every text field
func (i Item) Normalize() Item {
	i.ID = strings.TrimSpace(i.ID)
	i.Prompt = strings.TrimSpace(i.Prompt)
	i.Answer = strings.TrimSpace(i.Answer)
	i.Tag = strings.TrimSpace(i.Tag)
	i.Example = strings.TrimSpace(i.Example)
	return i
}

// Chunks returns the ordered word-order chunks of a pattern prompt.
// A prompt without a separator is a single chunk.
func (i Item) Chunks() []string {
	if !strings.Contains(i.Prompt, ChunkSeparator) {
		return []string{strings.TrimSpace(i.Prompt)}
	}

	parts := strings.Split(i.Prompt, ChunkSeparator)
	chunks := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			chunks = append(chunks, part)
		}
	}
	return chunks
}

// SpokenPrompt is the prompt text handed to speech synthesis
func (i Item) SpokenPrompt() string {
	return strings.TrimSpace(strings.Join(strings.Fields(strings.ReplaceAll(i.Prompt, ChunkSeparator, " ")), " "))
}

// IsPattern reports whether the item is a sentence-pattern drill
func (i Item) IsPattern() bool {
	return strings.EqualFold(i.Tag, "pattern")
}

// IsLong reports whether the item needs the compact text layout
func (i Item) IsLong() bool {
	return utf8.RuneCountInString(i.Prompt) > longPromptRunes || utf8.RuneCountInString(i.Answer) > longAnswerRunes
}
