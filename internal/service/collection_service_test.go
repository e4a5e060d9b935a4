package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"lingofocus/internal/models"
	"lingofocus/internal/seed"
	"lingofocus/internal/store"
)

func newTestStore() *store.Store {
	return store.New(store.NewMemoryBackend(), store.WithSeeds(seed.Collections))
}

type fakeGenerator struct {
	words     []models.Item
	responses []models.Item
	err       error
}

func (f *fakeGenerator) GenerateWordSet(_ context.Context, category models.Category, topic string) (models.Collection, error) {
	if f.err != nil {
		return models.Collection{}, f.err
	}
	return models.Collection{Kind: models.KindVocabulary, Category: category, Topic: topic, Items: f.words}, nil
}

func (f *fakeGenerator) GenerateResponseSet(_ context.Context, parent models.Collection) (models.Collection, error) {
	if f.err != nil {
		return models.Collection{}, f.err
	}
	return models.Collection{Category: parent.Category, Topic: parent.Topic, Items: f.responses}, nil
}

func TestCategoryCounts(t *testing.T) {
	ctx := context.Background()
	svc := NewCollectionService(newTestStore(), nil, zerolog.Nop())

	counts, err := svc.CategoryCounts(ctx)
	if err != nil {
		t.Fatalf("CategoryCounts() error = %v", err)
	}
	if len(counts) != len(models.Categories) {
		t.Fatalf("got %d categories, want %d", len(counts), len(models.Categories))
	}

	seeds := make(map[models.Category]int)
	for _, c := range seed.Collections() {
		seeds[c.Category] += len(c.Items)
	}
	for _, cc := range counts {
		if cc.Items != seeds[cc.Category] {
			t.Errorf("%s items = %d, want %d", cc.Category, cc.Items, seeds[cc.Category])
		}
		if cc.Label == "" {
			t.Errorf("%s has no label", cc.Category)
		}
	}
}

func TestGenerateWithoutGenerator(t *testing.T) {
	svc := NewCollectionService(newTestStore(), nil, zerolog.Nop())
	if svc.CanGenerate() {
		t.Error("CanGenerate() = true without a generator")
	}
	if _, err := svc.Generate(context.Background(), models.CategoryOPIc, "Travel"); !errors.Is(err, ErrGeneratorUnavailable) {
		t.Errorf("Generate() error = %v, want ErrGeneratorUnavailable", err)
	}
	if _, err := svc.GenerateResponses(context.Background(), "seed-opic"); !errors.Is(err, ErrGeneratorUnavailable) {
		t.Errorf("GenerateResponses() error = %v, want ErrGeneratorUnavailable", err)
	}
}

func TestGenerateAndResponses(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{
		words: []models.Item{
			{Prompt: "여행하다", Answer: "travel", Tag: "verb"},
			{Prompt: "여행하다", Answer: "travel", Tag: "verb"},
			{Prompt: "예약하다", Answer: "book", Tag: "verb"},
		},
		responses: []models.Item{
			{Prompt: "나는 / 예약했다 / 호텔을", Answer: "I booked a hotel.", Tag: "pattern"},
		},
	}
	svc := NewCollectionService(newTestStore(), gen, zerolog.Nop())

	words, err := svc.Generate(ctx, models.CategoryOPIc, "Travel")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if words.ID == "" || len(words.Items) != 2 {
		t.Fatalf("generated collection = %+v", words)
	}
	for _, item := range words.Items {
		if item.ID == "" {
			t.Error("generated item has no id")
		}
	}

	listed, err := svc.List(ctx, models.CategoryOPIc)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("OPIC collections = %d, want seed + generated", len(listed))
	}

	resp, err := svc.GenerateResponses(ctx, words.ID)
	if err != nil {
		t.Fatalf("GenerateResponses() error = %v", err)
	}
	if resp.Kind != models.KindResponse || resp.ParentID != words.ID {
		t.Errorf("response collection = %+v", resp)
	}

	got, err := svc.Responses(ctx, words.ID)
	if err != nil || len(got) != 1 {
		t.Fatalf("Responses() = %v, %v", got, err)
	}

	if err := svc.Delete(ctx, words.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, resp.ID); !errors.Is(err, store.ErrCollectionNotFound) {
		t.Errorf("response survived its parent: %v", err)
	}
	if _, err := svc.Responses(ctx, words.ID); !errors.Is(err, store.ErrCollectionNotFound) {
		t.Errorf("Responses() of a deleted parent error = %v", err)
	}
}

func TestGenerateFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := NewCollectionService(st, &fakeGenerator{err: errors.New("quota")}, zerolog.Nop())

	before, _ := st.ListCollections(ctx)
	if _, err := svc.Generate(ctx, models.CategoryOPIc, "Travel"); err == nil {
		t.Fatal("expected the generator error")
	}
	after, _ := st.ListCollections(ctx)
	if len(after) != len(before) {
		t.Errorf("collections changed on failure: %d -> %d", len(before), len(after))
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	svc := NewCollectionService(newTestStore(), nil, zerolog.Nop())

	csv := "korean,english\n비교하다,compare\n비교하다,compare\n모이다,gather\n"
	c, result, err := svc.Import(ctx, strings.NewReader(csv), "my words.csv", "")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if c.Topic != "my words" || c.Category != models.CategoryCustom || c.Kind != models.KindVocabulary {
		t.Errorf("imported collection = %+v", c)
	}
	if len(c.Items) != 2 || result.TotalProcessed != 3 {
		t.Errorf("items = %d, processed = %d", len(c.Items), result.TotalProcessed)
	}

	if _, _, err := svc.Import(ctx, strings.NewReader("korean,english\n"), "empty.csv", "x"); !errors.Is(err, ErrNothingImported) {
		t.Errorf("empty import error = %v, want ErrNothingImported", err)
	}
	if _, _, err := svc.Import(ctx, strings.NewReader(""), "notes.pdf", "x"); err == nil {
		t.Error("expected an error for an unsupported file")
	}
}

func TestDeleteSeedRejected(t *testing.T) {
	svc := NewCollectionService(newTestStore(), nil, zerolog.Nop())
	if err := svc.Delete(context.Background(), "seed-opic"); !errors.Is(err, store.ErrProtectedCollection) {
		t.Errorf("Delete() error = %v, want ErrProtectedCollection", err)
	}
}
