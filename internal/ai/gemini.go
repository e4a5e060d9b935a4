// Package ai generates new vocabulary and response collections with the
// Gemini generateContent REST API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"

	"lingofocus/internal/logging"
	"lingofocus/internal/models"
)

var (
	ErrNoCredentials = errors.New("ai: no credentials configured")
	ErrEmptyResponse = errors.New("ai: empty response")
)

const (
	DefaultModel   = "gemini-2.0-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	requestTimeout = 60 * time.Second

	// generativeLanguageScope is requested when running on Application Default Credentials
	generativeLanguageScope = "https://www.googleapis.com/auth/generative-language"

	wordSetSize     = 20
	responseSetSize = 10
)

// Client talks to one Gemini model
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at another endpoint, e.g. a test server
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = logging.Component(l, "ai") }
}

// New creates a client authenticated with an API key
func New(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoCredentials
	}
	c := newClient(opts...)
	c.apiKey = apiKey
	return c, nil
}

// NewWithADC creates a client authenticated through Application Default Credentials
func NewWithADC(ctx context.Context, opts ...Option) (*Client, error) {
	hc, err := google.DefaultClient(ctx, generativeLanguageScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}
	hc.Timeout = requestTimeout
	return newClient(append([]Option{WithHTTPClient(hc)}, opts...)...), nil
}

func newClient(opts ...Option) *Client {
	c := &Client{
		model:      DefaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateWordSet asks for a fresh vocabulary collection about topic. The
// result has no id yet; the store assigns one when it is saved.
func (c *Client) GenerateWordSet(ctx context.Context, category models.Category, topic string) (models.Collection, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return models.Collection{}, fmt.Errorf("ai: topic is required")
	}

	prompt := fmt.Sprintf(`Generate a list of exactly %d distinct vocabulary items for %s
The specific topic is: %q.
The words should be practical and frequently used for this topic.
Mix nouns, verbs, adjectives and adverbs.
"korean" is the Korean meaning, "english" is the English word or phrase.
Output strictly in JSON format.`, wordSetSize, categoryContext(category), topic)

	items, err := c.generateItems(ctx, prompt)
	if err != nil {
		return models.Collection{}, err
	}

	c.log.Info().Str("category", string(category)).Str("topic", topic).Int("items", len(items)).Msg("generated word set")
	return models.Collection{
		Kind:     models.KindVocabulary,
		Category: category,
		Topic:    topic,
		Items:    items,
	}, nil
}

// GenerateResponseSet builds interview-style answer patterns that use the
// vocabulary of parent.
func (c *Client) GenerateResponseSet(ctx context.Context, parent models.Collection) (models.Collection, error) {
	if parent.Kind != models.KindVocabulary {
		return models.Collection{}, fmt.Errorf("%w: responses need a vocabulary parent", models.ErrInvalidKind)
	}

	words := make([]string, 0, len(parent.Items))
	for i, item := range parent.Items {
		if i == wordSetSize {
			break
		}
		words = append(words, item.Answer)
	}

	prompt := fmt.Sprintf(`Write exactly %d short spoken English answers for an OPIc speaking test about %q.
Each answer should naturally use one of these words: %s.
"english" is the full English sentence.
"korean" is its Korean translation split into word-order chunks separated by " / ", following the English order.
"partOfSpeech" is always "pattern". "example" is a follow-up sentence that could come next.
Output strictly in JSON format.`, responseSetSize, parent.Topic, strings.Join(words, ", "))

	items, err := c.generateItems(ctx, prompt)
	if err != nil {
		return models.Collection{}, err
	}

	c.log.Info().Str("parent", parent.ID).Int("items", len(items)).Msg("generated response set")
	return models.Collection{
		Kind:     models.KindResponse,
		Category: parent.Category,
		Topic:    parent.Topic,
		ParentID: parent.ID,
		Items:    items,
	}, nil
}

func categoryContext(category models.Category) string {
	switch category {
	case models.CategoryOPIc:
		return "OPIc (Oral Proficiency Interview - computer) English speaking test preparation. Focus on high-frequency verbs, adjectives and connecting words used to describe daily life, hobbies and experiences."
	case models.CategoryAIEngineering:
		return "professional software engineering, AI research and data science. Focus on technical terminology, verbs used in development and research, and adjectives describing system properties."
	case models.CategorySubjectVerb, models.CategorySentenceStructure:
		return "English sentence patterns built from a subject and a verb. Give short phrases a Korean learner can reuse as sentence starters."
	default:
		return "everyday English conversation."
	}
}

// generateItems runs one structured generation and maps it onto items.
// Missing fields become empty strings and the entry is kept; only repeated
// prompt/answer pairs are dropped.
func (c *Client) generateItems(ctx context.Context, prompt string) ([]models.Item, error) {
	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var generated []generatedItem
	if err := json.Unmarshal([]byte(text), &generated); err != nil {
		return nil, fmt.Errorf("ai: failed to decode generated items: %w", err)
	}

	seen := make(map[string]bool, len(generated))
	items := make([]models.Item, 0, len(generated))
	for _, g := range generated {
		item := models.Item{
			Prompt:  g.Korean,
			Answer:  g.English,
			Tag:     strings.ToLower(g.PartOfSpeech),
			Example: g.Example,
		}.Normalize()
		key := item.Prompt + "\x00" + item.Answer
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, ErrEmptyResponse
	}
	return items, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   itemListSchema,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debug().Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("generateContent")

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("ai: API error %d %s: %s", out.Error.Code, out.Error.Status, out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai: unexpected status code: %d", resp.StatusCode)
	}

	var sb strings.Builder
	if len(out.Candidates) > 0 {
		for _, p := range out.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
