package workers

import (
	"context"

	"github.com/Nat1anWasTaken/paperly/internal/convert"
	"github.com/Nat1anWasTaken/paperly/internal/llm"
)

// ObjectStore is the object storage surface the stages use.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	URL(key string) string
}

// Converter turns a PDF into markdown plus extracted images.
type Converter interface {
	Convert(ctx context.Context, analysisID string, pdf []byte) (*convert.Result, error)
}

// Completer is the LLM surface the enrichment stages use.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
	CompleteStructured(ctx context.Context, req llm.Request, schemaName string, schema map[string]any, out any) error
}
