package store

import (
	"context"
	"fmt"
	"time"
)

// Paper is the digitized document a completed analysis produces. Content
// lives in Block records linked back to the paper by ID.
type Paper struct {
	ID        string
	Title     string
	CreatedAt string
}

// PaperStore persists Paper records.
type PaperStore struct {
	db DB
}

const paperFields = "_docID title created_at"

func paperFromDoc(doc map[string]any) *Paper {
	return &Paper{
		ID:        getString(doc, "_docID"),
		Title:     getString(doc, "title"),
		CreatedAt: getString(doc, "created_at"),
	}
}

// Create stores a new paper with the given title.
func (s *PaperStore) Create(ctx context.Context, title string) (*Paper, error) {
	p := &Paper{
		Title:     title,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	id, err := s.db.Create(ctx, "Paper", map[string]any{
		"title":      p.Title,
		"created_at": p.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create paper: %w", err)
	}
	p.ID = id
	return p, nil
}

// Get fetches a paper by document ID. Returns nil when not found.
func (s *PaperStore) Get(ctx context.Context, id string) (*Paper, error) {
	query := fmt.Sprintf(`query { Paper(docID: %q) { %s } }`, id, paperFields)
	resp, err := s.db.Execute(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query paper: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("paper query error: %s", errMsg)
	}
	docs := resp.Docs("Paper")
	if len(docs) == 0 {
		return nil, nil
	}
	return paperFromDoc(docs[0]), nil
}

// List returns every paper.
func (s *PaperStore) List(ctx context.Context) ([]*Paper, error) {
	query := fmt.Sprintf(`query { Paper { %s } }`, paperFields)
	resp, err := s.db.Execute(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query papers: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("paper query error: %s", errMsg)
	}
	docs := resp.Docs("Paper")
	papers := make([]*Paper, 0, len(docs))
	for _, doc := range docs {
		papers = append(papers, paperFromDoc(doc))
	}
	return papers, nil
}

// SetTitle updates the paper title.
func (s *PaperStore) SetTitle(ctx context.Context, p *Paper, title string) error {
	if err := s.db.Update(ctx, "Paper", p.ID, map[string]any{"title": title}); err != nil {
		return fmt.Errorf("failed to update paper title: %w", err)
	}
	p.Title = title
	return nil
}
