package store

import (
	"context"
	"fmt"
)

// Translation caches one block's content translated into one language.
// At most one record exists per (block, language) pair.
type Translation struct {
	ID       string
	BlockID  string
	Content  string
	Language string
}

// TranslationStore persists Translation records.
type TranslationStore struct {
	db DB
}

const translationFields = "_docID block_id content language"

func translationFromDoc(doc map[string]any) *Translation {
	return &Translation{
		ID:       getString(doc, "_docID"),
		BlockID:  getString(doc, "block_id"),
		Content:  getString(doc, "content"),
		Language: getString(doc, "language"),
	}
}

// Find returns the cached translation for a block and language, or nil
// when none exists.
func (s *TranslationStore) Find(ctx context.Context, blockID, language string) (*Translation, error) {
	query := fmt.Sprintf(
		`query { Translation(filter: {block_id: {_eq: %q}, language: {_eq: %q}}) { %s } }`,
		blockID, language, translationFields)
	resp, err := s.db.Execute(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query translation: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("translation query error: %s", errMsg)
	}
	docs := resp.Docs("Translation")
	if len(docs) == 0 {
		return nil, nil
	}
	return translationFromDoc(docs[0]), nil
}

// Create stores a new translation.
func (s *TranslationStore) Create(ctx context.Context, t *Translation) error {
	id, err := s.db.Create(ctx, "Translation", map[string]any{
		"block_id": t.BlockID,
		"content":  t.Content,
		"language": t.Language,
	})
	if err != nil {
		return fmt.Errorf("failed to create translation: %w", err)
	}
	t.ID = id
	return nil
}
