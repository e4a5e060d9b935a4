package session

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"lingofocus/internal/models"
)

type mapCounts map[string]int

func (m mapCounts) GetReviewCount(_ context.Context, id string) int { return m[id] }

func collectionOf(n int) models.Collection {
	c := models.Collection{ID: "set", Kind: models.KindVocabulary, Topic: "test"}
	for i := 0; i < n; i++ {
		c.Items = append(c.Items, models.Item{
			ID:     fmt.Sprintf("i%d", i),
			Prompt: fmt.Sprintf("p%d", i),
			Answer: fmt.Sprintf("a%d", i),
		})
	}
	return c
}

func TestBuildSessionSize(t *testing.T) {
	tests := []struct {
		name      string
		items     int
		batchSize int
		want      int
	}{
		{name: "batch smaller than set", items: 20, batchSize: 5, want: 5},
		{name: "batch larger than set", items: 7, batchSize: 50, want: 7},
		{name: "batch equals set", items: 10, batchSize: 10, want: 10},
		{name: "empty set", items: 0, batchSize: 10, want: 0},
		{name: "no cap", items: 12, batchSize: 0, want: 12},
	}

	sel := NewSelector(nil, rand.New(rand.NewSource(7)))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := collectionOf(tt.items)
			cards := sel.BuildSession(context.Background(), c, tt.batchSize)
			if len(cards) != tt.want {
				t.Fatalf("len = %d, want %d", len(cards), tt.want)
			}

			seen := make(map[string]bool)
			for _, card := range cards {
				if seen[card.ID] {
					t.Fatalf("duplicate item %s", card.ID)
				}
				seen[card.ID] = true
			}
		})
	}
}

func TestBuildSessionIsPermutation(t *testing.T) {
	c := collectionOf(30)
	sel := NewSelector(nil, rand.New(rand.NewSource(1)))
	cards := sel.BuildSession(context.Background(), c, 30)

	var got, want []string
	for _, card := range cards {
		got = append(got, card.ID)
	}
	for _, item := range c.Items {
		want = append(want, item.ID)
	}
	if strings.Join(got, ",") == strings.Join(want, ",") {
		t.Error("working set kept the stored order")
	}
	sort.Strings(got)
	sort.Strings(want)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("working set is not a permutation of the collection")
	}

	// The source collection is untouched
	if c.Items[0].ID != "i0" || c.Items[29].ID != "i29" {
		t.Error("collection was reordered in place")
	}
}

func TestBuildSessionAttachesCounts(t *testing.T) {
	counts := mapCounts{"i0": 4, "i2": 1}
	sel := NewSelector(counts, nil)
	for _, card := range sel.BuildSession(context.Background(), collectionOf(3), 10) {
		if card.ReviewCount != counts[card.ID] {
			t.Errorf("%s count = %d, want %d", card.ID, card.ReviewCount, counts[card.ID])
		}
	}
}

// Every item should land in every position about equally often
func TestShuffleUniformity(t *testing.T) {
	const (
		n      = 5
		trials = 20000
		// chi-square critical value, 16 degrees of freedom, p = 0.001
		critical = 39.25
	)

	rng := rand.New(rand.NewSource(42))
	var freq [n][n]int
	for trial := 0; trial < trials; trial++ {
		items := []int{0, 1, 2, 3, 4}
		Shuffle(items, rng)
		for pos, item := range items {
			freq[item][pos]++
		}
	}

	expected := float64(trials) / n
	chi := 0.0
	for item := 0; item < n; item++ {
		for pos := 0; pos < n; pos++ {
			d := float64(freq[item][pos]) - expected
			chi += d * d / expected
		}
	}
	if chi > critical {
		t.Errorf("chi-square = %.2f exceeds %.2f; frequencies %v", chi, critical, freq)
	}
}

func TestShufflePermutationsUniform(t *testing.T) {
	const (
		trials = 60000
		// 5 degrees of freedom, p = 0.001
		critical = 20.52
	)

	rng := rand.New(rand.NewSource(3))
	seen := make(map[string]int)
	for trial := 0; trial < trials; trial++ {
		items := []string{"a", "b", "c"}
		Shuffle(items, rng)
		seen[strings.Join(items, "")]++
	}
	if len(seen) != 6 {
		t.Fatalf("saw %d orderings, want 6", len(seen))
	}

	expected := float64(trials) / 6
	chi := 0.0
	for _, n := range seen {
		d := float64(n) - expected
		chi += d * d / expected
	}
	if chi > critical {
		t.Errorf("chi-square = %.2f exceeds %.2f; counts %v", chi, critical, seen)
	}
}
