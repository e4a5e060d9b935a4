package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lingofocus/internal/audio"
	"lingofocus/internal/clock"
	"lingofocus/internal/logging"
	"lingofocus/internal/models"
)

var (
	ErrAlreadyStarted = errors.New("session: already started")
	ErrNotRunning     = errors.New("session: not running")
)

// Speaker is the audio side of a session. Speak returns a channel that is
// closed once the utterance is over, including when it could not be spoken.
type Speaker interface {
	Speak(text, lang string) <-chan struct{}
	PlayCue(kind audio.Cue)
	StopSpeech()
}

// Recorder persists review counts
type Recorder interface {
	IncrementReviewCount(ctx context.Context, id string) (int, error)
}

type Options struct {
	Clock    clock.Clock // defaults to the wall clock
	Speaker  Speaker     // nil runs silently
	Recorder Recorder    // nil keeps counts in memory only
	Settings models.Settings
	Logger   zerolog.Logger

	// Context bounds recorder calls; defaults to context.Background
	Context context.Context

	// OnChange receives a snapshot after every state change, in order
	OnChange func(State)
	// OnComplete fires exactly once when the working set is exhausted
	OnComplete func()
}

// State is a point-in-time view of a session
type State struct {
	Phase     Phase           `json:"phase"`
	Paused    bool            `json:"paused"`
	Index     int             `json:"index"`
	Total     int             `json:"total"`
	Revealed  bool            `json:"revealed"`
	Remaining int             `json:"remaining"` // countdown seconds left
	Card      *models.Card    `json:"card,omitempty"`
	Settings  models.Settings `json:"settings"`
}

// Sequencer drives one study session through its timed phases.
//
// Every input, whether a control call, a timer or a finished utterance, is
// funnelled through dispatch, which looks the (phase, event) pair up in the
// transition table. Scheduled inputs carry the epoch they were created in;
// leaving a phase stops its timers and bumps the epoch, so a callback that
// slips past Stop is discarded instead of acting on a later phase.
type Sequencer struct {
	mu sync.Mutex

	clock    clock.Clock
	speaker  Speaker
	recorder Recorder
	log      zerolog.Logger
	baseCtx  context.Context

	onChange   func(State)
	onComplete func()

	cards     []models.Card
	idx       int
	phase     Phase
	paused    bool
	revealed  bool
	remaining int
	settings  models.Settings
	counted   map[int]bool
	completed bool

	epoch  uint64
	timers []clock.Timer
	ctx    context.Context // cancelled by cancelAll; bounds speech waiters
	cancel context.CancelFunc

	outbox []func()
}

// New creates an idle sequencer over a copy of cards
func New(cards []models.Card, opts Options) *Sequencer {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	settings := opts.Settings
	if settings == (models.Settings{}) {
		settings = models.DefaultSettings()
	}

	s := &Sequencer{
		clock:      opts.Clock,
		speaker:    opts.Speaker,
		recorder:   opts.Recorder,
		log:        logging.Component(opts.Logger, "sequencer"),
		baseCtx:    opts.Context,
		onChange:   opts.OnChange,
		onComplete: opts.OnComplete,
		cards:      append([]models.Card(nil), cards...),
		phase:      PhaseIdle,
		settings:   settings.Normalize(),
		counted:    make(map[int]bool),
	}
	s.ctx, s.cancel = context.WithCancel(s.baseCtx)
	return s
}

// Start begins the first item; an empty working set completes at once
func (s *Sequencer) Start() error {
	s.mu.Lock()
	if s.phase != PhaseIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.dispatch(evStart)
	s.unlockAndNotify()
	return nil
}

// Pause suspends all timers and speech; Resume restarts the current phase from its beginning
func (s *Sequencer) Pause() error  { return s.control(evPause) }
func (s *Sequencer) Resume() error { return s.control(evResume) }

// Next skips to the following item, finishing the session on the last one
func (s *Sequencer) Next() error { return s.control(evNext) }

// Previous returns to the prior item as an unrevealed prompt; it does nothing on the first item
func (s *Sequencer) Previous() error { return s.control(evPrevious) }

// Abort cancels everything pending and discards the working set
func (s *Sequencer) Abort() error {
	s.mu.Lock()
	if s.phase.Terminal() {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.dispatch(evAbort)
	s.unlockAndNotify()
	return nil
}

// UpdateSettings takes effect at the next phase entry. Turning off prompt
// speech while a prompt is being read moves straight on to the countdown.
func (s *Sequencer) UpdateSettings(settings models.Settings) {
	s.mu.Lock()
	s.settings = settings.Normalize()
	s.emit()
	if s.phase == PhasePrompt && !s.paused && !s.settings.SpeakPromptAloud {
		if s.speaker != nil {
			s.speaker.StopSpeech()
		}
		s.dispatch(evPromptDone)
	}
	s.unlockAndNotify()
}

func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Cards returns the working set with in-session review counts
func (s *Sequencer) Cards() []models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Card(nil), s.cards...)
}

func (s *Sequencer) control(ev event) error {
	s.mu.Lock()
	if s.phase == PhaseIdle || s.phase.Terminal() {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.dispatch(ev)
	s.unlockAndNotify()
	return nil
}

// fire delivers a scheduled event unless its epoch has passed
func (s *Sequencer) fire(epoch uint64, ev event) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.dispatch(ev)
	s.unlockAndNotify()
}

// dispatch is the single entry point into the state machine. Caller holds mu.
func (s *Sequencer) dispatch(ev event) {
	h, ok := transitions[transitionKey{s.phase, ev}]
	if !ok {
		return
	}
	if s.paused && ev.scheduled() {
		return
	}
	h(s)
}

func (s *Sequencer) begin() {
	if len(s.cards) == 0 {
		s.complete()
		return
	}
	s.idx = 0
	s.enterPrompt()
}

func (s *Sequencer) enterPrompt() {
	s.transition()
	s.phase = PhasePrompt
	s.revealed = false
	s.remaining = 0
	s.emit()
	if s.paused {
		return
	}

	if !s.settings.SpeakPromptAloud || s.speaker == nil {
		s.enterCountdown()
		return
	}
	done := s.speaker.Speak(s.cards[s.idx].SpokenPrompt(), audio.LangKorean)
	s.waitForSpeechDone(done, evPromptDone)
}

func (s *Sequencer) enterCountdown() {
	s.transition()
	s.phase = PhaseCountdown
	s.remaining = int(s.settings.RevealDelay() / time.Second)
	s.emit()
	if s.paused {
		return
	}

	// Every tick is scheduled ahead of the reveal so the last tick and the
	// reveal due at the same instant resolve tick-then-reveal.
	for i := 1; i <= s.remaining; i++ {
		s.waitForDelay(time.Duration(i)*time.Second, evTick)
	}
	s.waitForDelay(s.settings.RevealDelay(), evRevealDue)
}

// tick plays one cue per elapsed second of the countdown
func (s *Sequencer) tick() {
	s.cue(audio.CueTick)
	s.remaining--
	if s.remaining > 0 {
		s.emit()
	}
}

func (s *Sequencer) enterReveal() {
	// Stops the tick before anything else happens in this phase
	s.transition()
	s.phase = PhaseReveal
	s.remaining = 0
	s.recordStudy()
	s.revealed = true
	s.emit()

	if s.speaker != nil {
		s.speaker.Speak(s.cards[s.idx].Answer, audio.LangEnglish)
	}
	s.enterAdvanceWait()
}

func (s *Sequencer) enterAdvanceWait() {
	s.transition()
	s.phase = PhaseAdvanceWait
	s.emit()
	if s.paused {
		return
	}
	s.waitForDelay(s.settings.AutoAdvanceDelay(), evAdvanceDue)
}

func (s *Sequencer) advanceItem() {
	if s.idx >= len(s.cards)-1 {
		s.complete()
		return
	}
	s.idx++
	s.cue(audio.CuePop)
	s.enterPrompt()
}

func (s *Sequencer) next() {
	s.cancelAll()
	s.stopSpeech()
	s.advanceItem()
}

func (s *Sequencer) previous() {
	if s.idx == 0 {
		return
	}
	s.cancelAll()
	s.stopSpeech()
	s.idx--
	s.cue(audio.CuePop)
	s.enterPrompt()
}

func (s *Sequencer) pause() {
	if s.paused {
		return
	}
	s.paused = true
	s.cancelAll()
	s.stopSpeech()
	s.emit()
}

func (s *Sequencer) resume() {
	if !s.paused {
		return
	}
	s.paused = false
	switch s.phase {
	case PhasePrompt:
		s.enterPrompt()
	case PhaseCountdown:
		s.enterCountdown()
	case PhaseReveal, PhaseAdvanceWait:
		// The answer was already recorded and spoken; only the wait restarts
		s.enterAdvanceWait()
	}
}

func (s *Sequencer) abort() {
	s.cancelAll()
	s.stopSpeech()
	s.phase = PhaseAborted
	s.paused = false
	s.cards = nil
	s.emit()
}

func (s *Sequencer) complete() {
	s.cancelAll()
	s.phase = PhaseComplete
	s.paused = false
	s.revealed = false
	s.cue(audio.CueSuccess)
	s.emit()

	if s.completed {
		return
	}
	s.completed = true
	if s.onComplete != nil {
		s.outbox = append(s.outbox, s.onComplete)
	}
}

// recordStudy counts the current item at most once per session. A failed
// write is logged and the in-memory count still moves.
func (s *Sequencer) recordStudy() {
	if s.counted[s.idx] {
		return
	}
	s.counted[s.idx] = true

	card := &s.cards[s.idx]
	if s.recorder == nil {
		card.ReviewCount++
		return
	}
	n, err := s.recorder.IncrementReviewCount(s.baseCtx, card.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("item", card.ID).Msg("review count not saved")
		card.ReviewCount++
		return
	}
	card.ReviewCount = n
}

func (s *Sequencer) waitForDelay(d time.Duration, ev event) {
	epoch := s.epoch
	s.timers = append(s.timers, s.clock.AfterFunc(d, func() { s.fire(epoch, ev) }))
}

// waitForSpeechDone continues with ev once done closes. An already closed
// channel continues synchronously.
func (s *Sequencer) waitForSpeechDone(done <-chan struct{}, ev event) {
	select {
	case <-done:
		s.dispatch(ev)
		return
	default:
	}

	epoch, ctx := s.epoch, s.ctx
	go func() {
		select {
		case <-done:
			s.fire(epoch, ev)
		case <-ctx.Done():
		}
	}()
}

// transition stops the current phase's timers and retires its epoch
func (s *Sequencer) transition() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = s.timers[:0]
	s.epoch++
}

// cancelAll is transition plus releasing every goroutine waiting on speech
func (s *Sequencer) cancelAll() {
	s.transition()
	s.cancel()
	s.ctx, s.cancel = context.WithCancel(s.baseCtx)
}

func (s *Sequencer) stopSpeech() {
	if s.speaker != nil {
		s.speaker.StopSpeech()
	}
}

func (s *Sequencer) cue(kind audio.Cue) {
	if s.speaker != nil {
		s.speaker.PlayCue(kind)
	}
}

func (s *Sequencer) emit() {
	if s.onChange == nil {
		return
	}
	st := s.snapshot()
	s.outbox = append(s.outbox, func() { s.onChange(st) })
}

func (s *Sequencer) snapshot() State {
	st := State{
		Phase:     s.phase,
		Paused:    s.paused,
		Index:     s.idx,
		Total:     len(s.cards),
		Revealed:  s.revealed,
		Remaining: s.remaining,
		Settings:  s.settings,
	}
	if !s.phase.Terminal() && s.phase != PhaseIdle && s.idx < len(s.cards) {
		card := s.cards[s.idx]
		st.Card = &card
	}
	return st
}

// unlockAndNotify releases mu and then runs queued callbacks, so callbacks
// may call back into the sequencer.
func (s *Sequencer) unlockAndNotify() {
	out := s.outbox
	s.outbox = nil
	s.mu.Unlock()
	for _, fn := range out {
		fn()
	}
}
