package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"lingofocus/internal/models"
)

// ExportSnapshot serializes collections, review counts and settings as one document
func (s *Store) ExportSnapshot(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	collections, err := s.loadCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	counts, err := s.loadCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	snapshot := models.Snapshot{
		Version:      models.SnapshotVersion,
		ExportedAt:   s.now().UTC(),
		Collections:  collections,
		ReviewCounts: counts,
	}
	if raw, ok, err := s.backend.Get(ctx, KeySettings); err == nil && ok {
		var settings models.Settings
		if json.Unmarshal([]byte(raw), &settings) == nil {
			settings = settings.Normalize()
			snapshot.Settings = &settings
		}
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: encode snapshot: %w", err)
	}
	return data, nil
}

// ImportSnapshot replaces collections and review counts with the snapshot's.
// The payload is fully validated before anything is written; on
// ErrInvalidSnapshot the existing state is untouched.
func (s *Store) ImportSnapshot(ctx context.Context, blob []byte) error {
	snapshot, err := parseSnapshot(blob)
	if err != nil {
		return err
	}

	docs := map[string]interface{}{
		KeyCollections:  snapshot.Collections,
		KeyReviewCounts: snapshot.ReviewCounts,
	}
	if snapshot.Settings != nil {
		docs[KeySettings] = snapshot.Settings.Normalize()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeJSON(ctx, docs); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	s.log.Info().
		Int("collections", len(snapshot.Collections)).
		Int("counts", len(snapshot.ReviewCounts)).
		Msg("snapshot imported")
	return nil
}

func parseSnapshot(blob []byte) (models.Snapshot, error) {
	var raw struct {
		Version      string          `json:"version"`
		Collections  json.RawMessage `json:"collections"`
		ReviewCounts json.RawMessage `json:"reviewCounts"`
		Settings     *models.Settings `json:"settings"`
	}
	if err := json.Unmarshal(blob, &raw); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	body := bytes.TrimSpace(raw.Collections)
	if len(body) == 0 || body[0] != '[' {
		return models.Snapshot{}, fmt.Errorf("%w: collections must be an array", ErrInvalidSnapshot)
	}

	snapshot := models.Snapshot{Version: raw.Version, Settings: raw.Settings}
	if err := json.Unmarshal(body, &snapshot.Collections); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	snapshot.ReviewCounts = map[string]int{}
	if counts := bytes.TrimSpace(raw.ReviewCounts); len(counts) > 0 && !bytes.Equal(counts, []byte("null")) {
		if err := json.Unmarshal(counts, &snapshot.ReviewCounts); err != nil {
			return models.Snapshot{}, fmt.Errorf("%w: reviewCounts: %v", ErrInvalidSnapshot, err)
		}
	}
	for id, n := range snapshot.ReviewCounts {
		if n < 0 {
			return models.Snapshot{}, fmt.Errorf("%w: negative count for %s", ErrInvalidSnapshot, id)
		}
	}

	if err := validateCollections(snapshot.Collections); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return snapshot, nil
}

func validateCollections(collections []models.Collection) error {
	kinds := make(map[string]models.Kind, len(collections))
	for i := range collections {
		c := &collections[i]
		if c.ID == "" {
			return fmt.Errorf("collection %d has no id", i)
		}
		if _, dup := kinds[c.ID]; dup {
			return fmt.Errorf("duplicate collection id %s", c.ID)
		}
		c.AssignItemIDs()
		if err := c.Validate(); err != nil {
			return err
		}
		kinds[c.ID] = c.Kind
	}
	for _, c := range collections {
		if c.Kind == models.KindResponse && kinds[c.ParentID] != models.KindVocabulary {
			return fmt.Errorf("response collection %s references missing parent %s", c.ID, c.ParentID)
		}
	}
	return nil
}
