package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lingofocus/internal/logging"
	"lingofocus/internal/models"
)

// Storage keys, one JSON document each
const (
	KeyCollections  = "lingofocus_sets"
	KeyReviewCounts = "lingofocus_review_counts"
	KeySettings     = "lingofocus_settings"
)

var (
	ErrInvalidSnapshot     = errors.New("store: invalid snapshot")
	ErrCollectionNotFound  = errors.New("store: collection not found")
	ErrParentNotFound      = errors.New("store: parent collection not found")
	ErrProtectedCollection = errors.New("store: seed collections cannot be deleted")
)

// Store owns collections, review counts and settings.
// Every read-modify-write runs under one mutex.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	seeds    func() []models.Collection
	defaults models.Settings
	log      zerolog.Logger
	now      func() time.Time
}

type Option func(*Store)

// WithSeeds sets the collections materialized whenever the collection table is absent
func WithSeeds(seeds func() []models.Collection) Option {
	return func(s *Store) { s.seeds = seeds }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = logging.Component(l, "store") }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDefaultSettings sets what Settings returns before anything is saved
func WithDefaultSettings(settings models.Settings) Option {
	return func(s *Store) { s.defaults = settings.Normalize() }
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		seeds:    func() []models.Collection { return nil },
		defaults: models.DefaultSettings(),
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetReviewCount returns 0 for unknown ids and when storage cannot be read
func (s *Store) GetReviewCount(ctx context.Context, id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.loadCounts(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("item", id).Msg("review counts unreadable")
		return 0
	}
	return counts[id]
}

// ReviewCounts returns a copy of the whole count table
func (s *Store) ReviewCounts(ctx context.Context) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.loadCounts(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("review counts unreadable")
		return map[string]int{}
	}
	return counts
}

// IncrementReviewCount adds one to the count for id and returns the new value
func (s *Store) IncrementReviewCount(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.loadCounts(ctx)
	if err != nil {
		return 0, err
	}
	counts[id]++
	if err := s.writeJSON(ctx, map[string]interface{}{KeyReviewCounts: counts}); err != nil {
		return 0, fmt.Errorf("save review count for %s: %w", id, err)
	}
	return counts[id], nil
}

// ListCollections returns every stored collection, seeding on first access
func (s *Store) ListCollections(ctx context.Context) ([]models.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	collections, err := s.loadCollections(ctx)
	if err != nil {
		return nil, err
	}
	return cloneAll(collections), nil
}

func (s *Store) GetCollection(ctx context.Context, id string) (models.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	collections, err := s.loadCollections(ctx)
	if err != nil {
		return models.Collection{}, err
	}
	if i := indexOf(collections, id); i >= 0 {
		return collections[i].Clone(), nil
	}
	return models.Collection{}, fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
}

// CollectionsByCategory returns the vocabulary collections in a category
func (s *Store) CollectionsByCategory(ctx context.Context, category models.Category) ([]models.Collection, error) {
	all, err := s.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Collection
	for _, c := range all {
		if c.Kind == models.KindVocabulary && c.Category == category {
			out = append(out, c)
		}
	}
	return out, nil
}

// ResponsesFor returns the response collections derived from parentID
func (s *Store) ResponsesFor(ctx context.Context, parentID string) ([]models.Collection, error) {
	all, err := s.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Collection
	for _, c := range all {
		if c.Kind == models.KindResponse && c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

// SaveCollection inserts or replaces a collection. Missing ids, item ids and
// the creation time are filled in; the stored form is returned.
func (s *Store) SaveCollection(ctx context.Context, c models.Collection) (models.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	collections, err := s.loadCollections(ctx)
	if err != nil {
		return models.Collection{}, err
	}

	c = c.Clone()
	if c.ID == "" {
		c.ID = string(c.Kind) + "-" + uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	if c.Category == "" {
		c.Category = models.CategoryCustom
	}
	c.AssignItemIDs()
	if err := c.Validate(); err != nil {
		return models.Collection{}, err
	}

	if c.Kind == models.KindResponse {
		p := indexOf(collections, c.ParentID)
		if p < 0 || collections[p].Kind != models.KindVocabulary {
			return models.Collection{}, fmt.Errorf("%w: %s", ErrParentNotFound, c.ParentID)
		}
	}

	updated := make([]models.Collection, len(collections), len(collections)+1)
	copy(updated, collections)
	if i := indexOf(updated, c.ID); i >= 0 {
		updated[i] = c
	} else {
		updated = append(updated, c)
	}

	if err := s.writeJSON(ctx, map[string]interface{}{KeyCollections: updated}); err != nil {
		return models.Collection{}, fmt.Errorf("save collection %s: %w", c.ID, err)
	}
	return c.Clone(), nil
}

// DeleteCollection removes a collection and every response collection derived from it
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	collections, err := s.loadCollections(ctx)
	if err != nil {
		return err
	}
	i := indexOf(collections, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
	}
	if collections[i].IsSeed() {
		return fmt.Errorf("%w: %s", ErrProtectedCollection, id)
	}

	kept := make([]models.Collection, 0, len(collections))
	removed := 0
	for _, c := range collections {
		if c.ID == id || c.ParentID == id {
			removed++
			continue
		}
		kept = append(kept, c)
	}

	if err := s.writeJSON(ctx, map[string]interface{}{KeyCollections: kept}); err != nil {
		return fmt.Errorf("delete collection %s: %w", id, err)
	}
	s.log.Info().Str("collection", id).Int("removed", removed).Msg("collection deleted")
	return nil
}

// Settings returns the saved preferences, falling back to the defaults
func (s *Store) Settings(ctx context.Context) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.backend.Get(ctx, KeySettings)
	if err != nil || !ok {
		if err != nil {
			s.log.Warn().Err(err).Msg("settings unreadable")
		}
		return s.defaults
	}
	settings := s.defaults
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.log.Warn().Err(err).Msg("settings corrupt, using defaults")
		return s.defaults
	}
	return settings.Normalize()
}

// SaveSettings clamps and persists preferences, returning the stored form
func (s *Store) SaveSettings(ctx context.Context, settings models.Settings) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings = settings.Normalize()
	if err := s.writeJSON(ctx, map[string]interface{}{KeySettings: settings}); err != nil {
		return models.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return settings, nil
}

// ResetAll clears collections and review counts. Seeds come back on the next read.
func (s *Store) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(ctx, KeyCollections, KeyReviewCounts); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	s.log.Info().Msg("store reset")
	return nil
}

func (s *Store) loadCounts(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	raw, ok, err := s.backend.Get(ctx, KeyReviewCounts)
	if err != nil {
		return nil, fmt.Errorf("read review counts: %w", err)
	}
	if !ok || raw == "" {
		return counts, nil
	}
	if err := json.Unmarshal([]byte(raw), &counts); err != nil {
		return nil, fmt.Errorf("decode review counts: %w", err)
	}
	if counts == nil {
		counts = map[string]int{}
	}
	return counts, nil
}

// loadCollections seeds lazily: only an absent key triggers seeding, so an
// explicitly empty table stays empty.
func (s *Store) loadCollections(ctx context.Context) ([]models.Collection, error) {
	raw, ok, err := s.backend.Get(ctx, KeyCollections)
	if err != nil {
		return nil, fmt.Errorf("read collections: %w", err)
	}
	if !ok {
		seeds := s.seeds()
		if seeds == nil {
			seeds = []models.Collection{}
		}
		for i := range seeds {
			seeds[i].AssignItemIDs()
		}
		if err := s.writeJSON(ctx, map[string]interface{}{KeyCollections: seeds}); err != nil {
			s.log.Warn().Err(err).Msg("could not persist seed collections")
		} else {
			s.log.Info().Int("collections", len(seeds)).Msg("seed collections materialized")
		}
		return seeds, nil
	}

	var collections []models.Collection
	if err := json.Unmarshal([]byte(raw), &collections); err != nil {
		return nil, fmt.Errorf("decode collections: %w", err)
	}
	return collections, nil
}

func (s *Store) writeJSON(ctx context.Context, docs map[string]interface{}) error {
	entries := make(map[string]string, len(docs))
	for key, doc := range docs {
		b, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		entries[key] = string(b)
	}
	return s.backend.SetMany(ctx, entries)
}

func indexOf(collections []models.Collection, id string) int {
	for i, c := range collections {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(collections []models.Collection) []models.Collection {
	out := make([]models.Collection, len(collections))
	for i, c := range collections {
		out[i] = c.Clone()
	}
	return out
}
