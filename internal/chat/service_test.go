package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/Nat1anWasTaken/paperly/internal/defra"
	"github.com/Nat1anWasTaken/paperly/internal/llm"
	"github.com/Nat1anWasTaken/paperly/internal/store"
)

type fakeDB struct {
	responses []*defra.GQLResponse
}

func (f *fakeDB) Execute(ctx context.Context, query string, variables map[string]any) (*defra.GQLResponse, error) {
	if len(f.responses) == 0 {
		return &defra.GQLResponse{Data: map[string]any{}}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeDB) Create(ctx context.Context, collection string, input map[string]any) (string, error) {
	return "doc-1", nil
}

func (f *fakeDB) Update(ctx context.Context, collection string, docID string, input map[string]any) error {
	return nil
}

func (f *fakeDB) Delete(ctx context.Context, collection string, docID string) error {
	return nil
}

type fakeCompleter struct {
	text   string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.prompt = req.Prompt
	return f.text, f.err
}

func paperResponse() *defra.GQLResponse {
	return &defra.GQLResponse{Data: map[string]any{"Paper": []any{
		map[string]any{"_docID": "p-1", "title": "On Testing"},
	}}}
}

func blocksResponse() *defra.GQLResponse {
	return &defra.GQLResponse{Data: map[string]any{"Block": []any{
		map[string]any{"_docID": "b-1", "kind": "header", "paper_id": "p-1", "next_id": "b-2", "text": "Intro", "level": float64(1)},
		map[string]any{"_docID": "b-2", "kind": "paragraph", "paper_id": "p-1", "text": "Testing is good."},
	}}}
}

func newService(db *fakeDB, completer Completer) *Service {
	stores := store.New(db)
	return &Service{
		Papers: stores.Papers,
		Blocks: stores.Blocks,
		LLM:    completer,
		Logger: slog.New(slog.DiscardHandler),
	}
}

func TestAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("grounds the prompt in paper content", func(t *testing.T) {
		db := &fakeDB{responses: []*defra.GQLResponse{paperResponse(), blocksResponse()}}
		completer := &fakeCompleter{text: "Because testing is good."}
		svc := newService(db, completer)

		reply, err := svc.Ask(ctx, "p-1", nil, "Why test?")
		if err != nil {
			t.Fatalf("Ask failed: %v", err)
		}
		if reply != "Because testing is good." {
			t.Errorf("unexpected reply: %q", reply)
		}
		for _, part := range []string{"On Testing", "Testing is good.", "Why test?"} {
			if !strings.Contains(completer.prompt, part) {
				t.Errorf("prompt missing %q: %q", part, completer.prompt)
			}
		}
	})

	t.Run("replays history into the prompt", func(t *testing.T) {
		db := &fakeDB{responses: []*defra.GQLResponse{paperResponse(), blocksResponse()}}
		completer := &fakeCompleter{text: "reply"}
		svc := newService(db, completer)

		history := []Message{
			{Role: "user", Content: "What is this about?"},
			{Role: "assistant", Content: "Testing."},
		}
		if _, err := svc.Ask(ctx, "p-1", history, "Tell me more."); err != nil {
			t.Fatalf("Ask failed: %v", err)
		}
		if !strings.Contains(completer.prompt, "User: What is this about?") ||
			!strings.Contains(completer.prompt, "Assistant: Testing.") {
			t.Errorf("history not replayed: %q", completer.prompt)
		}
	})

	t.Run("rejects unknown history roles", func(t *testing.T) {
		db := &fakeDB{responses: []*defra.GQLResponse{paperResponse(), blocksResponse()}}
		svc := newService(db, &fakeCompleter{})

		_, err := svc.Ask(ctx, "p-1", []Message{{Role: "system", Content: "x"}}, "q")
		if !errors.Is(err, ErrInvalidRole) {
			t.Errorf("expected ErrInvalidRole, got %v", err)
		}
	})

	t.Run("missing paper", func(t *testing.T) {
		db := &fakeDB{responses: []*defra.GQLResponse{{Data: map[string]any{"Paper": []any{}}}}}
		svc := newService(db, &fakeCompleter{})

		_, err := svc.Ask(ctx, "p-404", nil, "q")
		if !errors.Is(err, ErrPaperNotFound) {
			t.Errorf("expected ErrPaperNotFound, got %v", err)
		}
	})

	t.Run("unsafe paper ID is rejected without querying", func(t *testing.T) {
		svc := newService(&fakeDB{}, &fakeCompleter{})
		_, err := svc.Ask(ctx, `p") { } mutation {`, nil, "q")
		if !errors.Is(err, ErrPaperNotFound) {
			t.Errorf("expected ErrPaperNotFound, got %v", err)
		}
	})

	t.Run("empty question", func(t *testing.T) {
		svc := newService(&fakeDB{}, &fakeCompleter{})
		if _, err := svc.Ask(ctx, "p-1", nil, "  "); err == nil {
			t.Error("expected error for empty question")
		}
	})

	t.Run("LLM failure propagates", func(t *testing.T) {
		db := &fakeDB{responses: []*defra.GQLResponse{paperResponse(), blocksResponse()}}
		svc := newService(db, &fakeCompleter{err: errors.New("down")})

		if _, err := svc.Ask(ctx, "p-1", nil, "q"); err == nil {
			t.Error("expected LLM error to propagate")
		}
	})
}
