package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// BlockKind discriminates the Block tagged union. Exactly one kind's
// payload fields are meaningful on any given block.
type BlockKind string

const (
	KindHeader    BlockKind = "header"
	KindParagraph BlockKind = "paragraph"
	KindFigure    BlockKind = "figure"
	KindTable     BlockKind = "table"
	KindEquation  BlockKind = "equation"
	KindCodeBlock BlockKind = "code_block"
	KindQuote     BlockKind = "quote"
	KindCallout   BlockKind = "callout"
	KindReference BlockKind = "reference"
	KindFootnote  BlockKind = "footnote"
	KindQuiz      BlockKind = "quiz"
)

// Valid reports whether k is a known block kind.
func (k BlockKind) Valid() bool {
	switch k {
	case KindHeader, KindParagraph, KindFigure, KindTable, KindEquation,
		KindCodeBlock, KindQuote, KindCallout, KindReference, KindFootnote,
		KindQuiz:
		return true
	}
	return false
}

// Chain errors returned by BlocksInOrder.
var (
	ErrNoHead        = errors.New("block chain has no head")
	ErrMultipleHeads = errors.New("block chain has multiple heads")
	ErrChainCycle    = errors.New("block chain contains a cycle")
	ErrDanglingNext  = errors.New("block chain points at a missing block")
)

// Block is one unit of paper content. Blocks of a paper form a singly
// linked chain through NextID; the head is the unique block no other
// block points at.
type Block struct {
	ID      string
	Kind    BlockKind
	PaperID string
	NextID  string

	// header, paragraph, quote, callout, footnote
	Text            string
	Title           string
	Level           int
	Author          string
	ReferenceNumber int

	// figure
	Caption      string
	ImageURL     string
	FigureNumber int

	// table
	Columns []string
	Rows    [][]string

	// equation and code
	Equation string
	Code     string
	Language string

	// reference
	Authors         []string
	PublicationYear int
	Journal         string
	Volume          string
	Issue           string
	Pages           string
	DOI             string

	// quiz
	Question      string
	Options       []string
	CorrectAnswer int
	Explanation   string
}

// PlainText returns the block's extractable prose. Figures and tables
// contribute their captions, equations their expression plus caption, code
// blocks their source, quizzes their question.
func (b *Block) PlainText() string {
	switch b.Kind {
	case KindFigure, KindTable:
		return strings.TrimSpace(b.Caption)
	case KindEquation:
		return strings.TrimSpace(strings.TrimSpace(b.Equation) + "\n" + strings.TrimSpace(b.Caption))
	case KindCodeBlock:
		return strings.TrimSpace(b.Code)
	case KindQuiz:
		return strings.TrimSpace(b.Question)
	}
	return strings.TrimSpace(b.Text)
}

// BlockStore persists Block records and maintains chain ordering.
type BlockStore struct {
	db DB
}

const blockFields = "_docID kind paper_id next_id text title level author " +
	"reference_number caption image_url figure_number columns rows equation " +
	"code language authors publication_year journal volume issue pages doi " +
	"question options correct_answer explanation"

// toInput builds the mutation input for a block. Only fields relevant to
// the block's kind are included so other kinds' fields stay unset in the
// document.
func (b *Block) toInput() (map[string]any, error) {
	input := map[string]any{
		"kind":     string(b.Kind),
		"paper_id": b.PaperID,
	}
	if b.NextID != "" {
		input["next_id"] = b.NextID
	}

	switch b.Kind {
	case KindHeader:
		input["text"] = b.Text
		input["level"] = b.Level
	case KindParagraph:
		input["text"] = b.Text
	case KindFigure:
		input["image_url"] = b.ImageURL
		if b.Caption != "" {
			input["caption"] = b.Caption
		}
		if b.FigureNumber > 0 {
			input["figure_number"] = b.FigureNumber
		}
	case KindTable:
		input["columns"] = b.Columns
		rows, err := json.Marshal(b.Rows)
		if err != nil {
			return nil, fmt.Errorf("failed to encode table rows: %w", err)
		}
		input["rows"] = string(rows)
		if b.Caption != "" {
			input["caption"] = b.Caption
		}
	case KindEquation:
		input["equation"] = b.Equation
		if b.Caption != "" {
			input["caption"] = b.Caption
		}
	case KindCodeBlock:
		input["code"] = b.Code
		if b.Language != "" {
			input["language"] = b.Language
		}
	case KindQuote:
		input["text"] = b.Text
		if b.Author != "" {
			input["author"] = b.Author
		}
	case KindCallout:
		input["text"] = b.Text
		if b.Title != "" {
			input["title"] = b.Title
		}
	case KindReference:
		input["text"] = b.Text
		if len(b.Authors) > 0 {
			input["authors"] = b.Authors
		}
		if b.Title != "" {
			input["title"] = b.Title
		}
		if b.PublicationYear > 0 {
			input["publication_year"] = b.PublicationYear
		}
		if b.Journal != "" {
			input["journal"] = b.Journal
		}
		if b.Volume != "" {
			input["volume"] = b.Volume
		}
		if b.Issue != "" {
			input["issue"] = b.Issue
		}
		if b.Pages != "" {
			input["pages"] = b.Pages
		}
		if b.DOI != "" {
			input["doi"] = b.DOI
		}
	case KindFootnote:
		input["text"] = b.Text
		if b.ReferenceNumber > 0 {
			input["reference_number"] = b.ReferenceNumber
		}
	case KindQuiz:
		input["question"] = b.Question
		input["options"] = b.Options
		input["correct_answer"] = b.CorrectAnswer
		input["explanation"] = b.Explanation
	default:
		return nil, fmt.Errorf("unknown block kind %q", b.Kind)
	}

	return input, nil
}

func blockFromDoc(doc map[string]any) *Block {
	b := &Block{
		ID:              getString(doc, "_docID"),
		Kind:            BlockKind(getString(doc, "kind")),
		PaperID:         getString(doc, "paper_id"),
		NextID:          getString(doc, "next_id"),
		Text:            getString(doc, "text"),
		Title:           getString(doc, "title"),
		Level:           getInt(doc, "level"),
		Author:          getString(doc, "author"),
		ReferenceNumber: getInt(doc, "reference_number"),
		Caption:         getString(doc, "caption"),
		ImageURL:        getString(doc, "image_url"),
		FigureNumber:    getInt(doc, "figure_number"),
		Columns:         getStringSlice(doc, "columns"),
		Equation:        getString(doc, "equation"),
		Code:            getString(doc, "code"),
		Language:        getString(doc, "language"),
		Authors:         getStringSlice(doc, "authors"),
		PublicationYear: getInt(doc, "publication_year"),
		Journal:         getString(doc, "journal"),
		Volume:          getString(doc, "volume"),
		Issue:           getString(doc, "issue"),
		Pages:           getString(doc, "pages"),
		DOI:             getString(doc, "doi"),
		Question:        getString(doc, "question"),
		Options:         getStringSlice(doc, "options"),
		CorrectAnswer:   getInt(doc, "correct_answer"),
		Explanation:     getString(doc, "explanation"),
	}
	if raw := getString(doc, "rows"); raw != "" {
		// Rows decoded best effort; a corrupt value leaves Rows nil rather
		// than failing the whole read.
		_ = json.Unmarshal([]byte(raw), &b.Rows)
	}
	return b
}

// Create stores a block and fills in its document ID.
func (s *BlockStore) Create(ctx context.Context, b *Block) error {
	input, err := b.toInput()
	if err != nil {
		return err
	}
	id, err := s.db.Create(ctx, "Block", input)
	if err != nil {
		return fmt.Errorf("failed to create block: %w", err)
	}
	b.ID = id
	return nil
}

// Get fetches a block by document ID. Returns nil when not found.
func (s *BlockStore) Get(ctx context.Context, id string) (*Block, error) {
	query := fmt.Sprintf(`query { Block(docID: %q) { %s } }`, id, blockFields)
	resp, err := s.db.Execute(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query block: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("block query error: %s", errMsg)
	}
	docs := resp.Docs("Block")
	if len(docs) == 0 {
		return nil, nil
	}
	return blockFromDoc(docs[0]), nil
}

// ListByPaper returns every block belonging to a paper in storage order,
// which carries no meaning. Use BlocksInOrder for reading content.
func (s *BlockStore) ListByPaper(ctx context.Context, paperID string) ([]*Block, error) {
	query := fmt.Sprintf(`query { Block(filter: {paper_id: {_eq: %q}}) { %s } }`, paperID, blockFields)
	resp, err := s.db.Execute(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("block query error: %s", errMsg)
	}
	docs := resp.Docs("Block")
	blocks := make([]*Block, 0, len(docs))
	for _, doc := range docs {
		blocks = append(blocks, blockFromDoc(doc))
	}
	return blocks, nil
}

// BlocksInOrder returns a paper's blocks in reading order by walking the
// next_id chain from its head. The head is the unique block no other block
// points at; zero or multiple heads, cycles, and dangling next pointers
// are reported as errors rather than returning a partial ordering.
func (s *BlockStore) BlocksInOrder(ctx context.Context, paperID string) ([]*Block, error) {
	blocks, err := s.ListByPaper(ctx, paperID)
	if err != nil {
		return nil, err
	}
	return orderChain(blocks)
}

// orderChain resolves the linked order of a block set.
func orderChain(blocks []*Block) ([]*Block, error) {
	if len(blocks) == 0 {
		return nil, nil
	}

	byID := make(map[string]*Block, len(blocks))
	pointedAt := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
		if b.NextID != "" {
			pointedAt[b.NextID] = true
		}
	}

	var head *Block
	for _, b := range blocks {
		if pointedAt[b.ID] {
			continue
		}
		if head != nil {
			return nil, fmt.Errorf("%w: at least %s and %s", ErrMultipleHeads, head.ID, b.ID)
		}
		head = b
	}
	if head == nil {
		return nil, ErrNoHead
	}

	ordered := make([]*Block, 0, len(blocks))
	visited := make(map[string]bool, len(blocks))
	for b := head; ; {
		if visited[b.ID] {
			return nil, fmt.Errorf("%w: revisited block %s", ErrChainCycle, b.ID)
		}
		visited[b.ID] = true
		ordered = append(ordered, b)
		if b.NextID == "" {
			break
		}
		next, ok := byID[b.NextID]
		if !ok {
			return nil, fmt.Errorf("%w: %s points at %s", ErrDanglingNext, b.ID, b.NextID)
		}
		b = next
	}

	if len(ordered) != len(blocks) {
		// Leftover blocks have no head among themselves, so they form a
		// detached cycle.
		return nil, fmt.Errorf("%w: %d of %d blocks unreachable from head",
			ErrChainCycle, len(blocks)-len(ordered), len(blocks))
	}
	return ordered, nil
}

// InsertAfter splices a new block into the chain directly after an
// existing one. The new block inherits the predecessor's next pointer,
// then the predecessor is repointed at the new block.
func (s *BlockStore) InsertAfter(ctx context.Context, after *Block, b *Block) error {
	if after == nil || after.ID == "" {
		return errors.New("insert after requires an existing block")
	}
	b.PaperID = after.PaperID
	b.NextID = after.NextID
	if err := s.Create(ctx, b); err != nil {
		return err
	}
	if err := s.db.Update(ctx, "Block", after.ID, map[string]any{"next_id": b.ID}); err != nil {
		return fmt.Errorf("failed to relink block %s: %w", after.ID, err)
	}
	after.NextID = b.ID
	return nil
}

// SaveChain stores blocks as a fresh chain for a paper, linking each block
// to the next in slice order. Blocks are written back to front so every
// next_id already refers to an existing document. Returns the head.
func (s *BlockStore) SaveChain(ctx context.Context, paperID string, blocks []*Block) (*Block, error) {
	if len(blocks) == 0 {
		return nil, errors.New("cannot save an empty chain")
	}
	for i := len(blocks) - 1; i >= 0; i-- {
		b := blocks[i]
		b.PaperID = paperID
		if i < len(blocks)-1 {
			b.NextID = blocks[i+1].ID
		}
		if err := s.Create(ctx, b); err != nil {
			return nil, fmt.Errorf("failed to save chain block %d: %w", i, err)
		}
	}
	return blocks[0], nil
}
