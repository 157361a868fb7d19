// Package store implements the persistence layer on top of DefraDB.
// Each record type lives in its own collection; relationships are weak
// string links (document IDs stored as plain String fields), so ordering
// and joins are resolved in application code.
package store

import (
	"context"
	"encoding/json"

	"github.com/Nat1anWasTaken/paperly/internal/defra"
)

// DB is the subset of the DefraDB client the stores depend on.
type DB interface {
	Execute(ctx context.Context, query string, variables map[string]any) (*defra.GQLResponse, error)
	Create(ctx context.Context, collection string, input map[string]any) (string, error)
	Update(ctx context.Context, collection string, docID string, input map[string]any) error
	Delete(ctx context.Context, collection string, docID string) error
}

// Stores bundles every collection store behind one constructor so callers
// wire a single value through the application.
type Stores struct {
	Papers       *PaperStore
	Analyses     *AnalysisStore
	Blocks       *BlockStore
	Translations *TranslationStore
}

// New creates stores backed by the given DefraDB client.
func New(db DB) *Stores {
	return &Stores{
		Papers:       &PaperStore{db: db},
		Analyses:     &AnalysisStore{db: db},
		Blocks:       &BlockStore{db: db},
		Translations: &TranslationStore{db: db},
	}
}

func getString(doc map[string]any, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

// getInt handles DefraDB integers, which arrive as json.Number or float64
// depending on how the response was decoded.
func getInt(doc map[string]any, key string) int {
	switch v := doc[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

func getStringSlice(doc map[string]any, key string) []string {
	raw, ok := doc[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
