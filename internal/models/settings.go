package models

import "time"

// Delay bounds in seconds for both session timers
const (
	MinDelaySeconds = 1
	MaxDelaySeconds = 10
)

// BatchSizePresets are the session sizes offered in preferences
var BatchSizePresets = []int{10, 50, 100}

// Settings are the session preferences supplied by the host application
type Settings struct {
	RevealDelaySeconds      int  `json:"revealDelaySeconds"`
	AutoAdvanceDelaySeconds int  `json:"autoAdvanceDelaySeconds"`
	BatchSize               int  `json:"batchSize"`
	SpeakPromptAloud        bool `json:"speakPromptAloud"`
}

// DefaultSettings mirrors the product defaults
func DefaultSettings() Settings {
	return Settings{
		RevealDelaySeconds:      3,
		AutoAdvanceDelaySeconds: 3,
		BatchSize:               50,
		SpeakPromptAloud:        false,
	}
}

// ClampDelay forces a delay into [MinDelaySeconds, MaxDelaySeconds]
func ClampDelay(seconds int) int {
	if seconds < MinDelaySeconds {
		return MinDelaySeconds
	}
	if seconds > MaxDelaySeconds {
		return MaxDelaySeconds
	}
	return seconds
}

// Normalize clamps out-of-range values instead of rejecting them
func (s Settings) Normalize() Settings {
	s.RevealDelaySeconds = ClampDelay(s.RevealDelaySeconds)
	s.AutoAdvanceDelaySeconds = ClampDelay(s.AutoAdvanceDelaySeconds)
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}
	return s
}

// AdjustRevealDelay applies a +/- step from the session controls
func (s Settings) AdjustRevealDelay(delta int) Settings {
	s.RevealDelaySeconds = ClampDelay(s.RevealDelaySeconds + delta)
	return s
}

// AdjustAutoAdvanceDelay applies a +/- step from the session controls
func (s Settings) AdjustAutoAdvanceDelay(delta int) Settings {
	s.AutoAdvanceDelaySeconds = ClampDelay(s.AutoAdvanceDelaySeconds + delta)
	return s
}

func (s Settings) RevealDelay() time.Duration {
	return time.Duration(ClampDelay(s.RevealDelaySeconds)) * time.Second
}

func (s Settings) AutoAdvanceDelay() time.Duration {
	return time.Duration(ClampDelay(s.AutoAdvanceDelaySeconds)) * time.Second
}
