package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/Nat1anWasTaken/paperly/internal/defra"
)

// fakeDB records mutations and serves queued query responses.
type fakeDB struct {
	creates   []map[string]any
	updates   []map[string]any
	updateIDs []string
	responses []*defra.GQLResponse
	nextID    int
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
	f.creates = append(f.creates, input)
	f.nextID++
	return fmt.Sprintf("doc-%d", f.nextID), nil
}

func (f *fakeDB) Update(ctx context.Context, collection string, docID string, input map[string]any) error {
	f.updateIDs = append(f.updateIDs, docID)
	f.updates = append(f.updates, input)
	return nil
}

func (f *fakeDB) Delete(ctx context.Context, collection string, docID string) error {
	return nil
}

func chainBlock(id, nextID string) *Block {
	return &Block{ID: id, Kind: KindParagraph, PaperID: "paper-1", NextID: nextID, Text: id}
}

func TestOrderChain(t *testing.T) {
	t.Run("orders by next pointers regardless of input order", func(t *testing.T) {
		blocks := []*Block{
			chainBlock("c", ""),
			chainBlock("a", "b"),
			chainBlock("b", "c"),
		}
		ordered, err := orderChain(blocks)
		if err != nil {
			t.Fatalf("orderChain failed: %v", err)
		}
		want := []string{"a", "b", "c"}
		if len(ordered) != len(want) {
			t.Fatalf("expected %d blocks, got %d", len(want), len(ordered))
		}
		for i, id := range want {
			if ordered[i].ID != id {
				t.Errorf("position %d: expected %s, got %s", i, id, ordered[i].ID)
			}
		}
	})

	t.Run("empty set yields empty order", func(t *testing.T) {
		ordered, err := orderChain(nil)
		if err != nil {
			t.Fatalf("orderChain failed: %v", err)
		}
		if len(ordered) != 0 {
			t.Errorf("expected no blocks, got %d", len(ordered))
		}
	})

	t.Run("single block is its own head", func(t *testing.T) {
		ordered, err := orderChain([]*Block{chainBlock("only", "")})
		if err != nil {
			t.Fatalf("orderChain failed: %v", err)
		}
		if len(ordered) != 1 || ordered[0].ID != "only" {
			t.Errorf("unexpected order: %+v", ordered)
		}
	})

	t.Run("rejects multiple heads", func(t *testing.T) {
		blocks := []*Block{
			chainBlock("a", "c"),
			chainBlock("b", "c"),
			chainBlock("c", ""),
		}
		_, err := orderChain(blocks)
		if !errors.Is(err, ErrMultipleHeads) {
			t.Errorf("expected ErrMultipleHeads, got %v", err)
		}
	})

	t.Run("rejects full cycle with no head", func(t *testing.T) {
		blocks := []*Block{
			chainBlock("a", "b"),
			chainBlock("b", "a"),
		}
		_, err := orderChain(blocks)
		if !errors.Is(err, ErrNoHead) {
			t.Errorf("expected ErrNoHead, got %v", err)
		}
	})

	t.Run("rejects cycle hanging off the chain", func(t *testing.T) {
		blocks := []*Block{
			chainBlock("head", "b"),
			chainBlock("b", "c"),
			chainBlock("c", "b"),
		}
		_, err := orderChain(blocks)
		if !errors.Is(err, ErrChainCycle) {
			t.Errorf("expected ErrChainCycle, got %v", err)
		}
	})

	t.Run("rejects dangling next pointer", func(t *testing.T) {
		blocks := []*Block{
			chainBlock("a", "b"),
			chainBlock("b", "gone"),
		}
		_, err := orderChain(blocks)
		if !errors.Is(err, ErrDanglingNext) {
			t.Errorf("expected ErrDanglingNext, got %v", err)
		}
		if errors.Is(err, ErrChainCycle) {
			t.Errorf("dangling pointer should not report a cycle: %v", err)
		}
	})

	t.Run("rejects disconnected second chain", func(t *testing.T) {
		blocks := []*Block{
			chainBlock("a", "b"),
			chainBlock("b", ""),
			chainBlock("x", "y"),
			chainBlock("y", ""),
		}
		_, err := orderChain(blocks)
		if !errors.Is(err, ErrMultipleHeads) {
			t.Errorf("expected ErrMultipleHeads, got %v", err)
		}
	})
}

func TestInsertAfter(t *testing.T) {
	ctx := context.Background()

	t.Run("splices between two blocks", func(t *testing.T) {
		db := &fakeDB{}
		blocks := &BlockStore{db: db}
		after := chainBlock("doc-a", "doc-c")

		inserted := &Block{Kind: KindQuiz, Question: "q", Options: []string{"a", "b", "c", "d"}, Explanation: "e"}
		if err := blocks.InsertAfter(ctx, after, inserted); err != nil {
			t.Fatalf("InsertAfter failed: %v", err)
		}

		if inserted.NextID != "doc-c" {
			t.Errorf("inserted block should point at old successor, got %q", inserted.NextID)
		}
		if inserted.PaperID != after.PaperID {
			t.Errorf("inserted block should inherit paper, got %q", inserted.PaperID)
		}
		if len(db.creates) != 1 {
			t.Fatalf("expected 1 create, got %d", len(db.creates))
		}
		if len(db.updates) != 1 || db.updateIDs[0] != "doc-a" {
			t.Fatalf("expected predecessor update, got %v", db.updateIDs)
		}
		if db.updates[0]["next_id"] != inserted.ID {
			t.Errorf("predecessor should point at inserted block, got %v", db.updates[0]["next_id"])
		}
		if after.NextID != inserted.ID {
			t.Errorf("in-memory predecessor not relinked, got %q", after.NextID)
		}
	})

	t.Run("appends at the tail", func(t *testing.T) {
		db := &fakeDB{}
		blocks := &BlockStore{db: db}
		after := chainBlock("doc-tail", "")

		inserted := &Block{Kind: KindParagraph, Text: "new tail"}
		if err := blocks.InsertAfter(ctx, after, inserted); err != nil {
			t.Fatalf("InsertAfter failed: %v", err)
		}
		if inserted.NextID != "" {
			t.Errorf("tail insert should have no successor, got %q", inserted.NextID)
		}
	})

	t.Run("rejects nil predecessor", func(t *testing.T) {
		blocks := &BlockStore{db: &fakeDB{}}
		err := blocks.InsertAfter(ctx, nil, &Block{Kind: KindParagraph, Text: "x"})
		if err == nil {
			t.Error("expected error for nil predecessor")
		}
	})
}

func TestSaveChain(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{}
	blocks := &BlockStore{db: db}

	chain := []*Block{
		{Kind: KindHeader, Text: "Title", Level: 1},
		{Kind: KindParagraph, Text: "Some text."},
		{Kind: KindParagraph, Text: "More text."},
	}
	head, err := blocks.SaveChain(ctx, "paper-1", chain)
	if err != nil {
		t.Fatalf("SaveChain failed: %v", err)
	}
	if head != chain[0] {
		t.Error("head should be the first block")
	}
	for i := 0; i < len(chain)-1; i++ {
		if chain[i].NextID != chain[i+1].ID {
			t.Errorf("block %d should link to %q, got %q", i, chain[i+1].ID, chain[i].NextID)
		}
	}
	if chain[len(chain)-1].NextID != "" {
		t.Errorf("tail should have no successor, got %q", chain[len(chain)-1].NextID)
	}
	for i, b := range chain {
		if b.ID == "" {
			t.Errorf("block %d has no document ID", i)
		}
		if b.PaperID != "paper-1" {
			t.Errorf("block %d not linked to paper", i)
		}
	}
	// Tail is written first so each next_id refers to an existing document.
	if db.creates[0]["text"] != "More text." {
		t.Errorf("expected tail written first, got %v", db.creates[0]["text"])
	}

	if _, err := blocks.SaveChain(ctx, "paper-1", nil); err == nil {
		t.Error("expected error for empty chain")
	}
}

func TestBlockToInput(t *testing.T) {
	t.Run("table rows stored as JSON", func(t *testing.T) {
		b := &Block{
			Kind:    KindTable,
			PaperID: "paper-1",
			Columns: []string{"Name", "Value"},
			Rows:    [][]string{{"a", "1"}, {"b", "2"}},
		}
		input, err := b.toInput()
		if err != nil {
			t.Fatalf("toInput failed: %v", err)
		}
		raw, ok := input["rows"].(string)
		if !ok {
			t.Fatalf("rows should be a string, got %T", input["rows"])
		}
		var rows [][]string
		if err := json.Unmarshal([]byte(raw), &rows); err != nil {
			t.Fatalf("rows should be valid JSON: %v", err)
		}
		if len(rows) != 2 || rows[1][1] != "2" {
			t.Errorf("unexpected rows round trip: %v", rows)
		}
	})

	t.Run("kind fields stay scoped", func(t *testing.T) {
		b := &Block{Kind: KindParagraph, PaperID: "paper-1", Text: "hello", Question: "leak?"}
		input, err := b.toInput()
		if err != nil {
			t.Fatalf("toInput failed: %v", err)
		}
		if _, ok := input["question"]; ok {
			t.Error("paragraph input should not carry quiz fields")
		}
		if input["text"] != "hello" {
			t.Errorf("unexpected text: %v", input["text"])
		}
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		b := &Block{Kind: "mystery", PaperID: "paper-1"}
		if _, err := b.toInput(); err == nil {
			t.Error("expected error for unknown kind")
		}
	})
}

func TestBlockPlainText(t *testing.T) {
	cases := []struct {
		name  string
		block *Block
		want  string
	}{
		{"paragraph text", &Block{Kind: KindParagraph, Text: " body "}, "body"},
		{"figure caption only", &Block{Kind: KindFigure, ImageURL: "u", Caption: "A chart"}, "A chart"},
		{"captionless figure is empty", &Block{Kind: KindFigure, ImageURL: "u"}, ""},
		{"table caption only", &Block{Kind: KindTable, Columns: []string{"a"}, Caption: "Results"}, "Results"},
		{"equation with caption", &Block{Kind: KindEquation, Equation: "E=mc^2", Caption: "energy"}, "E=mc^2\nenergy"},
		{"code source", &Block{Kind: KindCodeBlock, Code: "x = 1", Language: "python"}, "x = 1"},
		{"quiz question", &Block{Kind: KindQuiz, Question: "Why?", Options: []string{"a"}}, "Why?"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.block.PlainText(); got != c.want {
				t.Errorf("expected %q, got %q", c.want, got)
			}
		})
	}
}

func TestBlockFromDoc(t *testing.T) {
	doc := map[string]any{
		"_docID":   "doc-1",
		"kind":     "table",
		"paper_id": "paper-1",
		"columns":  []any{"Name", "Value"},
		"rows":     `[["a","1"],["b","2"]]`,
	}
	b := blockFromDoc(doc)
	if b.Kind != KindTable {
		t.Errorf("unexpected kind: %s", b.Kind)
	}
	if len(b.Columns) != 2 || b.Columns[0] != "Name" {
		t.Errorf("unexpected columns: %v", b.Columns)
	}
	if len(b.Rows) != 2 || b.Rows[0][1] != "1" {
		t.Errorf("unexpected rows: %v", b.Rows)
	}
}
