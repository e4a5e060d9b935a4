package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lingofocus/internal/clock"
	"lingofocus/internal/logging"
	"lingofocus/internal/models"
	"lingofocus/internal/session"
	"lingofocus/internal/store"
)

var (
	ErrNoActiveSession = errors.New("service: no active session")
	ErrUnknownAction   = errors.New("service: unknown session action")
)

// Session control actions accepted by Control
const (
	ActionPause    = "pause"
	ActionResume   = "resume"
	ActionNext     = "next"
	ActionPrevious = "previous"
	ActionAbort    = "abort"
)

// ActiveSession describes the session currently being studied
type ActiveSession struct {
	CollectionID string        `json:"collectionId"`
	Topic        string        `json:"topic"`
	StartedAt    time.Time     `json:"startedAt"`
	State        session.State `json:"state"`
}

// Summary is shown once a session is over
type Summary struct {
	CollectionID string        `json:"collectionId"`
	Topic        string        `json:"topic"`
	Completed    bool          `json:"completed"`
	Studied      int           `json:"studied"`
	Duration     time.Duration `json:"duration"`
	Cards        []models.Card `json:"cards"`
}

// StudyService owns the single active study session
type StudyService struct {
	store    *store.Store
	selector *session.Selector
	speaker  session.Speaker
	clock    clock.Clock
	log      zerolog.Logger

	mu          sync.Mutex
	active      *session.Sequencer
	collection  models.Collection
	startedAt   time.Time
	completedAt time.Time
	before      map[string]int
}

type StudyOption func(*StudyService)

// WithClock replaces the wall clock driving session timers
func WithClock(c clock.Clock) StudyOption {
	return func(s *StudyService) { s.clock = c }
}

// WithRand makes working-set shuffles reproducible
func WithRand(rng *rand.Rand) StudyOption {
	return func(s *StudyService) { s.selector = session.NewSelector(s.store, rng) }
}

// NewStudyService creates the study service; speaker may be nil for silent sessions
func NewStudyService(st *store.Store, speaker session.Speaker, logger zerolog.Logger, opts ...StudyOption) *StudyService {
	s := &StudyService{
		store:    st,
		selector: session.NewSelector(st, nil),
		speaker:  speaker,
		clock:    clock.Real{},
		log:      logging.Component(logger, "study"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start replaces any running session with a new one over collectionID
func (s *StudyService) Start(ctx context.Context, collectionID string) (ActiveSession, error) {
	c, err := s.store.GetCollection(ctx, collectionID)
	if err != nil {
		return ActiveSession{}, err
	}
	settings := s.store.Settings(ctx)
	cards := s.selector.BuildSession(ctx, c, settings.BatchSize)

	before := make(map[string]int, len(cards))
	for _, card := range cards {
		before[card.ID] = card.ReviewCount
	}

	var seq *session.Sequencer
	seq = session.New(cards, session.Options{
		Clock:    s.clock,
		Speaker:  s.speaker,
		Recorder: s.store,
		Settings: settings,
		Logger:   s.log,
		OnComplete: func() {
			s.mu.Lock()
			if s.active == seq {
				s.completedAt = s.clock.Now()
			}
			s.mu.Unlock()
			s.log.Info().Str("collection", c.ID).Msg("session complete")
		},
	})

	s.mu.Lock()
	prev := s.active
	s.active = seq
	s.collection = c
	s.startedAt = s.clock.Now()
	s.completedAt = time.Time{}
	s.before = before
	startedAt := s.startedAt
	s.mu.Unlock()

	if prev != nil {
		// A finished session reports ErrNotRunning, which is fine here
		prev.Abort()
	}
	// An empty working set completes inside Start, and OnComplete takes s.mu
	if err := seq.Start(); err != nil {
		return ActiveSession{}, fmt.Errorf("failed to start session: %w", err)
	}

	s.log.Info().Str("collection", c.ID).Int("cards", len(cards)).Int("batch", settings.BatchSize).Msg("session started")
	return ActiveSession{
		CollectionID: c.ID,
		Topic:        c.DisplayTopic(),
		StartedAt:    startedAt,
		State:        seq.State(),
	}, nil
}

// Current returns the active session
func (s *StudyService) Current() (ActiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return ActiveSession{}, ErrNoActiveSession
	}
	return ActiveSession{
		CollectionID: s.collection.ID,
		Topic:        s.collection.DisplayTopic(),
		StartedAt:    s.startedAt,
		State:        s.active.State(),
	}, nil
}

// Control applies one of the Action* controls to the active session
func (s *StudyService) Control(action string) (session.State, error) {
	s.mu.Lock()
	seq := s.active
	s.mu.Unlock()
	if seq == nil {
		return session.State{}, ErrNoActiveSession
	}

	var err error
	switch action {
	case ActionPause:
		err = seq.Pause()
	case ActionResume:
		err = seq.Resume()
	case ActionNext:
		err = seq.Next()
	case ActionPrevious:
		err = seq.Previous()
	case ActionAbort:
		err = seq.Abort()
	default:
		return session.State{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if err != nil {
		return session.State{}, err
	}
	return seq.State(), nil
}

// Settings returns the persisted session preferences
func (s *StudyService) Settings(ctx context.Context) models.Settings {
	return s.store.Settings(ctx)
}

// UpdateSettings persists preferences and applies them to the active session
func (s *StudyService) UpdateSettings(ctx context.Context, settings models.Settings) (models.Settings, error) {
	saved, err := s.store.SaveSettings(ctx, settings)
	if err != nil {
		return models.Settings{}, err
	}

	s.mu.Lock()
	seq := s.active
	s.mu.Unlock()
	if seq != nil && !seq.State().Phase.Terminal() {
		seq.UpdateSettings(saved)
	}
	return saved, nil
}

// Summary reports the cards of the active or last session with their
// updated review counts.
func (s *StudyService) Summary() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return Summary{}, ErrNoActiveSession
	}

	cards := s.active.Cards()
	studied := 0
	for _, card := range cards {
		if card.ReviewCount > s.before[card.ID] {
			studied++
		}
	}

	end := s.completedAt
	if end.IsZero() {
		end = s.clock.Now()
	}
	return Summary{
		CollectionID: s.collection.ID,
		Topic:        s.collection.DisplayTopic(),
		Completed:    s.active.State().Phase == session.PhaseComplete,
		Studied:      studied,
		Duration:     end.Sub(s.startedAt),
		Cards:        cards,
	}, nil
}

// Stop aborts the active session, e.g. on shutdown
func (s *StudyService) Stop() {
	s.mu.Lock()
	seq := s.active
	s.mu.Unlock()
	if seq != nil {
		seq.Abort()
	}
}
