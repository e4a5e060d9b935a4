package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"lingofocus/internal/models"
)

// CountSource supplies current review counts when a working set is built
type CountSource interface {
	GetReviewCount(ctx context.Context, id string) int
}

// Shuffle permutes items in place with Fisher-Yates
func Shuffle[T any](items []T, rng *rand.Rand) {
	for i := len(items) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// Selector draws shuffled, size-capped working sets from collections
type Selector struct {
	counts CountSource

	mu  sync.Mutex // *rand.Rand is not safe for concurrent use
	rng *rand.Rand
}

// NewSelector builds a selector; a nil rng is seeded from the current time
func NewSelector(counts CountSource, rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{counts: counts, rng: rng}
}

// BuildSession returns min(batchSize, len(items)) distinct cards in random
// order, each carrying its current review count. The collection is not modified.
func (s *Selector) BuildSession(ctx context.Context, c models.Collection, batchSize int) []models.Card {
	items := make([]models.Item, len(c.Items))
	copy(items, c.Items)
	s.mu.Lock()
	Shuffle(items, s.rng)
	s.mu.Unlock()

	if batchSize > 0 && batchSize < len(items) {
		items = items[:batchSize]
	}

	cards := make([]models.Card, len(items))
	for i, item := range items {
		cards[i] = models.Card{Item: item}
		if s.counts != nil {
			cards[i].ReviewCount = s.counts.GetReviewCount(ctx, item.ID)
		}
	}
	return cards
}
