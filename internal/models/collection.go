package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidKind       = errors.New("models: invalid collection kind")
	ErrInvalidCollection = errors.New("models: invalid collection")
)

// SeedPrefix marks collections bundled with the application
const SeedPrefix = "seed-"

// Kind discriminates the two collection variants
type Kind string

const (
	// KindVocabulary is a primary word or pattern collection
	KindVocabulary Kind = "vocabulary"
	// KindResponse is a derived sentence collection that references its parent vocabulary collection
	KindResponse Kind = "response"
)

// ParseKind validates a kind read from storage or a request
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindVocabulary, KindResponse:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Category groups vocabulary collections on the welcome screen
type Category string

const (
	CategoryOPIc              Category = "OPIC"
	CategoryAIEngineering     Category = "AI_ENGINEERING"
	CategorySubjectVerb       Category = "SUBJECT_VERB"
	CategorySentenceStructure Category = "SENTENCE_STRUCTURE"
	CategoryCustom            Category = "CUSTOM"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryOPIc,
	CategoryAIEngineering,
	CategorySubjectVerb,
	CategorySentenceStructure,
	CategoryCustom,
}

// ParseCategory accepts a category name in any case
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("models: unknown category %q", s)
}

// Label returns the human readable category name
func (c Category) Label() string {
	switch c {
	case CategoryOPIc:
		return "OPIc Speaking"
	case CategoryAIEngineering:
		return "AI Engineering"
	case CategorySubjectVerb:
		return "S+V Pattern"
	case CategorySentenceStructure:
		return "1-5 Structures"
	case CategoryCustom:
		return "Custom"
	default:
		return string(c)
	}
}

// Collection is a named, ordered group of items
type Collection struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Category  Category  `json:"category"`
	Topic     string    `json:"topic"`
	ParentID  string    `json:"parentId,omitempty"` // set only for KindResponse
	CreatedAt time.Time `json:"createdAt"`
	Items     []Item    `json:"items"`
}

// IsSeed reports whether the collection ships with the application
func (c Collection) IsSeed() bool {
	return strings.HasPrefix(c.ID, SeedPrefix)
}

// DisplayTopic is the title shown for a session over this collection
func (c Collection) DisplayTopic() string {
	switch c.Kind {
	case KindResponse:
		return c.Topic + " (Response)"
	default:
		return c.Topic
	}
}

// Validate checks the variant invariants and item identity
func (c Collection) Validate() error {
	switch c.Kind {
	case KindVocabulary:
		if c.ParentID != "" {
			return fmt.Errorf("%w: vocabulary collection %s has a parent", ErrInvalidCollection, c.ID)
		}
	case KindResponse:
		if c.ParentID == "" {
			return fmt.Errorf("%w: response collection %s has no parent", ErrInvalidCollection, c.ID)
		}
		if c.ParentID == c.ID {
			return fmt.Errorf("%w: collection %s is its own parent", ErrInvalidCollection, c.ID)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, c.Kind)
	}

	seen := make(map[string]struct{}, len(c.Items))
	for _, item := range c.Items {
		if item.ID == "" {
			return fmt.Errorf("%w: collection %s has an item without id", ErrInvalidCollection, c.ID)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("%w: duplicate item id %s in collection %s", ErrInvalidCollection, item.ID, c.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

// AssignItemIDs gives every item without an id a stable content-derived one
func (c *Collection) AssignItemIDs() {
	for i := range c.Items {
		c.Items[i] = c.Items[i].Normalize()
		if c.Items[i].ID == "" {
			c.Items[i].ID = ItemID(c.ID, c.Items[i].Prompt, c.Items[i].Answer)
		}
	}
}

// Clone returns a deep copy so callers cannot mutate stored items
func (c Collection) Clone() Collection {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	c.Items = items
	return c
}
