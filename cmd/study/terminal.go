package main

import (
	"fmt"
	"strings"
	"time"

	"lingofocus/internal/models"
	"lingofocus/internal/session"
)

// terminal prints session snapshots as plain lines. It only writes when
// something visible changed.
type terminal struct {
	last session.State
}

func (t *terminal) render(s session.State) {
	prev := t.last
	t.last = s

	switch {
	case s.Phase == session.PhaseComplete && prev.Phase != session.PhaseComplete:
		fmt.Println("\n✓ session complete")
	case s.Phase == session.PhaseAborted:
		return
	case s.Paused != prev.Paused:
		if s.Paused {
			fmt.Println("  ❚❚ paused")
		} else {
			fmt.Println("  ▶ resumed")
		}
	case s.Card == nil:
		return
	case s.Phase == session.PhasePrompt && (prev.Phase != session.PhasePrompt || prev.Index != s.Index):
		fmt.Printf("\n[%d/%d] %s\n", s.Index+1, s.Total, promptText(s.Card))
	case s.Phase == session.PhaseCountdown && s.Remaining != prev.Remaining:
		fmt.Printf("  %d…\n", s.Remaining)
	case s.Revealed && !prev.Revealed:
		if s.Card.IsLong() {
			fmt.Printf("  →\n    %s\n ", s.Card.Answer)
		} else {
			fmt.Printf("  → %s", s.Card.Answer)
		}
		if s.Card.Tag != "" {
			fmt.Printf("  (%s)", s.Card.Tag)
		}
		fmt.Printf("  ×%d\n", s.Card.ReviewCount)
		if s.Card.Example != "" {
			fmt.Printf("    e.g. %s\n", s.Card.Example)
		}
	}
}

func promptText(c *models.Card) string {
	chunks := c.Chunks()
	if len(chunks) == 1 {
		return chunks[0]
	}
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = fmt.Sprintf("%d) %s", i+1, chunk)
	}
	return strings.Join(parts, "  ")
}

func printSummary(cards []models.Card, before map[string]int, took time.Duration) {
	studied := 0
	for _, c := range cards {
		if c.ReviewCount > before[c.ID] {
			studied++
		}
	}
	fmt.Printf("\nstudied %d of %d cards in %s\n", studied, len(cards), took.Round(time.Second))
}
