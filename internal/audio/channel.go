package audio

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lingofocus/internal/logging"
)

// RestartGap is the pause between stopping one utterance and starting the
// next; some speech backends drop an utterance issued right after a cancel.
const RestartGap = 50 * time.Millisecond

const cueTimeout = 2 * time.Second

// Channel serializes speech over an Engine: a new utterance always stops
// the previous one first. Failures are logged and never block callers.
type Channel struct {
	engine Engine
	gap    time.Duration
	log    zerolog.Logger

	mu      sync.Mutex
	current *utterance
}

type utterance struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (u *utterance) finish() {
	u.once.Do(func() { close(u.done) })
}

type ChannelOption func(*Channel)

func WithRestartGap(d time.Duration) ChannelOption {
	return func(c *Channel) { c.gap = d }
}

func WithLogger(l zerolog.Logger) ChannelOption {
	return func(c *Channel) { c.log = logging.Component(l, "audio") }
}

// NewChannel wraps engine; a nil engine behaves as unavailable speech
func NewChannel(engine Engine, opts ...ChannelOption) *Channel {
	c := &Channel{engine: engine, gap: RestartGap, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether speech can actually be produced
func (c *Channel) Available() bool {
	return c.engine != nil && c.engine.Available()
}

// Speak starts an utterance and returns a channel closed when it finishes,
// fails or is stopped. Without a usable engine the channel is already closed.
func (c *Channel) Speak(text, lang string) <-chan struct{} {
	if !c.Available() || strings.TrimSpace(text) == "" {
		done := make(chan struct{})
		close(done)
		return done
	}

	ctx, cancel := context.WithCancel(context.Background())
	u := &utterance{cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.stopLocked()
	c.current = u
	c.mu.Unlock()

	go func() {
		defer u.finish()
		defer c.release(u)
		defer cancel()

		if c.gap > 0 {
			select {
			case <-time.After(c.gap):
			case <-ctx.Done():
				return
			}
		}
		if err := c.engine.Say(ctx, text, lang); err != nil && ctx.Err() == nil {
			c.log.Warn().Err(err).Str("lang", lang).Msg("speech failed")
		}
	}()
	return u.done
}

// StopSpeech cancels the in-flight utterance and releases anyone waiting on it
func (c *Channel) StopSpeech() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Speaking reports whether an utterance is in flight
func (c *Channel) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// PlayCue plays a cue in the background; failures are skipped
func (c *Channel) PlayCue(kind Cue) {
	if !c.Available() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cueTimeout)
		defer cancel()
		if err := c.engine.Cue(ctx, kind); err != nil {
			c.log.Debug().Err(err).Str("cue", string(kind)).Msg("cue skipped")
		}
	}()
}

func (c *Channel) stopLocked() {
	if c.current == nil {
		return
	}
	c.current.cancel()
	c.current.finish()
	c.current = nil
}

func (c *Channel) release(u *utterance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == u {
		c.current = nil
	}
}
