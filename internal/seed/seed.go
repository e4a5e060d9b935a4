// Package seed holds the collections bundled with the application.
package seed

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"strings"

	"lingofocus/internal/importer"
	"lingofocus/internal/models"
)

//go:embed data/*.txt
var dataFS embed.FS

type source struct {
	id       string
	file     string
	category models.Category
	topic    string
}

var sources = []source{
	{id: models.SeedPrefix + "opic", file: "data/opic.txt", category: models.CategoryOPIc, topic: "OPIc Essential Verbs"},
	{id: models.SeedPrefix + "ai-engineering", file: "data/ai_engineering.txt", category: models.CategoryAIEngineering, topic: "AI Engineering Basics"},
	{id: models.SeedPrefix + "subject-verb", file: "data/subject_verb.txt", category: models.CategorySubjectVerb, topic: "Subject + Verb Patterns"},
}

// Collections parses the bundled data. Item ids are content-derived, so
// review counts follow an item across restarts and re-seeding.
func Collections() []models.Collection {
	out := make([]models.Collection, 0, len(sources))
	for _, src := range sources {
		c, err := load(src)
		if err != nil {
			// Embedded data is fixed at build time
			panic(err)
		}
		out = append(out, c)
	}
	return out
}

func load(src source) (models.Collection, error) {
	data, err := dataFS.ReadFile(src.file)
	if err != nil {
		return models.Collection{}, fmt.Errorf("seed %s: %w", src.id, err)
	}
	items, err := importer.ParseDelimited(bytes.NewReader(data))
	if err != nil {
		return models.Collection{}, fmt.Errorf("seed %s: %w", src.id, err)
	}

	c := models.Collection{
		ID:       src.id,
		Kind:     models.KindVocabulary,
		Category: src.category,
		Topic:    src.topic,
		Items:    items,
	}
	c.AssignItemIDs()
	if err := c.Validate(); err != nil {
		return models.Collection{}, fmt.Errorf("seed %s: %w", src.id, err)
	}
	return c, nil
}

// SuggestedTopics lists conversation topics offered by the generator form
func SuggestedTopics() []string {
	data, err := dataFS.ReadFile("data/opic_topics.txt")
	if err != nil {
		panic(err)
	}
	var topics []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if t := strings.TrimSpace(scanner.Text()); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
