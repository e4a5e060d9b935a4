package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"lingofocus/internal/importer"
	"lingofocus/internal/logging"
	"lingofocus/internal/models"
	"lingofocus/internal/seed"
	"lingofocus/internal/store"
)

var (
	ErrGeneratorUnavailable = errors.New("service: generator not configured")
	ErrNothingImported      = errors.New("service: no usable rows in import")
)

// Generator creates new collections; *ai.Client implements it
type Generator interface {
	GenerateWordSet(ctx context.Context, category models.Category, topic string) (models.Collection, error)
	GenerateResponseSet(ctx context.Context, parent models.Collection) (models.Collection, error)
}

// CategoryCount summarizes one category for the welcome screen
type CategoryCount struct {
	Category    models.Category `json:"category"`
	Label       string          `json:"label"`
	Collections int             `json:"collections"`
	Items       int             `json:"items"`
}

// CollectionService handles browsing, generating and importing collections
type CollectionService struct {
	store     *store.Store
	generator Generator
	log       zerolog.Logger
}

// NewCollectionService creates a collection service; gen may be nil
func NewCollectionService(st *store.Store, gen Generator, logger zerolog.Logger) *CollectionService {
	return &CollectionService{
		store:     st,
		generator: gen,
		log:       logging.Component(logger, "collections"),
	}
}

// CanGenerate reports whether a generator is configured
func (s *CollectionService) CanGenerate() bool {
	return s.generator != nil
}

// List returns vocabulary collections of one category, or every collection
// when category is empty.
func (s *CollectionService) List(ctx context.Context, category models.Category) ([]models.Collection, error) {
	if category == "" {
		return s.store.ListCollections(ctx)
	}
	return s.store.CollectionsByCategory(ctx, category)
}

func (s *CollectionService) Get(ctx context.Context, id string) (models.Collection, error) {
	return s.store.GetCollection(ctx, id)
}

// Responses lists the response collections derived from parentID
func (s *CollectionService) Responses(ctx context.Context, parentID string) ([]models.Collection, error) {
	if _, err := s.store.GetCollection(ctx, parentID); err != nil {
		return nil, err
	}
	return s.store.ResponsesFor(ctx, parentID)
}

func (s *CollectionService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteCollection(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("collection", id).Msg("collection deleted")
	return nil
}

// CategoryCounts totals vocabulary collections and items per category
func (s *CollectionService) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	collections, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[models.Category]*CategoryCount, len(models.Categories))
	counts := make([]CategoryCount, len(models.Categories))
	for i, c := range models.Categories {
		counts[i] = CategoryCount{Category: c, Label: c.Label()}
		byCategory[c] = &counts[i]
	}
	for _, c := range collections {
		if c.Kind != models.KindVocabulary {
			continue
		}
		if cc, ok := byCategory[c.Category]; ok {
			cc.Collections++
			cc.Items += len(c.Items)
		}
	}
	return counts, nil
}

// SuggestedTopics are offered as starting points for generation
func (s *CollectionService) SuggestedTopics() []string {
	return seed.SuggestedTopics()
}

// Generate creates and stores a new vocabulary collection about topic
func (s *CollectionService) Generate(ctx context.Context, category models.Category, topic string) (models.Collection, error) {
	if s.generator == nil {
		return models.Collection{}, ErrGeneratorUnavailable
	}

	c, err := s.generator.GenerateWordSet(ctx, category, topic)
	if err != nil {
		return models.Collection{}, fmt.Errorf("failed to generate word set: %w", err)
	}
	c.Items = dedupeItems(c.Items)
	saved, err := s.store.SaveCollection(ctx, c)
	if err != nil {
		return models.Collection{}, err
	}

	s.log.Info().Str("collection", saved.ID).Str("topic", saved.Topic).Int("items", len(saved.Items)).Msg("word set generated")
	return saved, nil
}

// GenerateResponses creates and stores a response collection for parentID
func (s *CollectionService) GenerateResponses(ctx context.Context, parentID string) (models.Collection, error) {
	if s.generator == nil {
		return models.Collection{}, ErrGeneratorUnavailable
	}

	parent, err := s.store.GetCollection(ctx, parentID)
	if err != nil {
		return models.Collection{}, err
	}
	c, err := s.generator.GenerateResponseSet(ctx, parent)
	if err != nil {
		return models.Collection{}, fmt.Errorf("failed to generate responses: %w", err)
	}
	c.Kind = models.KindResponse
	c.ParentID = parent.ID
	c.Items = dedupeItems(c.Items)

	saved, err := s.store.SaveCollection(ctx, c)
	if err != nil {
		return models.Collection{}, err
	}
	s.log.Info().Str("collection", saved.ID).Str("parent", parent.ID).Int("items", len(saved.Items)).Msg("response set generated")
	return saved, nil
}

// Import reads a spreadsheet, CSV or pipe-delimited file into a new CUSTOM
// collection. The topic defaults to the file name.
func (s *CollectionService) Import(ctx context.Context, r io.Reader, filename, topic string) (models.Collection, *importer.ImportResult, error) {
	format, err := importer.FormatFromFilename(filename)
	if err != nil {
		return models.Collection{}, nil, err
	}
	cfg := importer.DefaultImportConfig()
	cfg.Format = format

	result, err := importer.Import(r, cfg)
	if err != nil {
		return models.Collection{}, nil, err
	}
	items := dedupeItems(result.Items)
	if len(items) == 0 {
		return models.Collection{}, result, ErrNothingImported
	}

	if topic = strings.TrimSpace(topic); topic == "" {
		base := filepath.Base(filename)
		topic = strings.TrimSuffix(base, filepath.Ext(base))
	}
	saved, err := s.store.SaveCollection(ctx, models.Collection{
		Kind:     models.KindVocabulary,
		Category: models.CategoryCustom,
		Topic:    topic,
		Items:    items,
	})
	if err != nil {
		return models.Collection{}, result, err
	}

	s.log.Info().Str("collection", saved.ID).Str("file", filename).
		Int("items", len(saved.Items)).Int("skipped", result.Skipped).Msg("collection imported")
	return saved, result, nil
}

// dedupeItems drops repeated prompt/answer pairs, which would share an id
func dedupeItems(items []models.Item) []models.Item {
	seen := make(map[string]bool, len(items))
	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		item = item.Normalize()
		key := item.Prompt + "\x00" + item.Answer
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
