package store

import (
	"context"
	"fmt"
	"time"
)

// Status is the lifecycle state of an analysis. Workers claim analyses by
// polling for a status and advance them along the pipeline; statuses only
// move forward, except Errored which is reachable from any non-terminal
// state.
type Status string

const (
	StatusCreated              Status = "created"
	StatusExtractingMarkdown   Status = "extracting_markdown"
	StatusMarkdownExtracted    Status = "markdown_extracted"
	StatusGeneratingMetadata   Status = "generating_metadata"
	StatusMetadataGenerated    Status = "metadata_generated"
	StatusProcessingIntoBlocks Status = "processing_into_blocks"
	StatusBlocksProcessed      Status = "blocks_processed"
	StatusGeneratingQuizzes    Status = "generating_quizzes"
	StatusCompleted            Status = "completed"
	StatusErrored              Status = "errored"
)

var statusOrder = map[Status]int{
	StatusCreated:              0,
	StatusExtractingMarkdown:   1,
	StatusMarkdownExtracted:    2,
	StatusGeneratingMetadata:   3,
	StatusMetadataGenerated:    4,
	StatusProcessingIntoBlocks: 5,
	StatusBlocksProcessed:      6,
	StatusGeneratingQuizzes:    7,
	StatusCompleted:            8,
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	if s == StatusErrored {
		return true
	}
	_, ok := statusOrder[s]
	return ok
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusErrored
}

// Order returns the position of s in the pipeline. Errored has no order.
func (s Status) Order() int {
	if n, ok := statusOrder[s]; ok {
		return n
	}
	return -1
}

// CanTransition reports whether moving from s to next is allowed. Forward
// moves only; Errored is allowed from any non-terminal status.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusErrored {
		return true
	}
	from, ok := statusOrder[s]
	if !ok {
		return false
	}
	to, ok := statusOrder[next]
	if !ok {
		return false
	}
	return to > from
}

// Analysis tracks one uploaded PDF through the processing pipeline.
type Analysis struct {
	ID                string
	Status            Status
	FileKey           string
	PaperID           string
	ProcessedMarkdown string
	ErrorMessage      string
	CreatedAt         string
}

// AnalysisStore persists Analysis records.
type AnalysisStore struct {
	db DB
}

const analysisFields = "_docID status file_key paper_id processed_markdown error_message created_at"

func analysisFromDoc(doc map[string]any) *Analysis {
	return &Analysis{
		ID:                getString(doc, "_docID"),
		Status:            Status(getString(doc, "status")),
		FileKey:           getString(doc, "file_key"),
		PaperID:           getString(doc, "paper_id"),
		ProcessedMarkdown: getString(doc, "processed_markdown"),
		ErrorMessage:      getString(doc, "error_message"),
		CreatedAt:         getString(doc, "created_at"),
	}
}

// Create stores a new analysis in the created state for an uploaded file.
func (s *AnalysisStore) Create(ctx context.Context, fileKey string) (*Analysis, error) {
	a := &Analysis{
		Status:    StatusCreated,
		FileKey:   fileKey,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	id, err := s.db.Create(ctx, "Analysis", map[string]any{
		"status":     string(a.Status),
		"file_key":   a.FileKey,
		"created_at": a.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis: %w", err)
	}
	a.ID = id
	return a, nil
}

// Get fetches an analysis by document ID. Returns nil when not found.
func (s *AnalysisStore) Get(ctx context.Context, id string) (*Analysis, error) {
	query := fmt.Sprintf(`query { Analysis(docID: %q) { %s } }`, id, analysisFields)
	resp, err := s.db.Execute(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("analysis query error: %s", errMsg)
	}
	docs := resp.Docs("Analysis")
	if len(docs) == 0 {
		return nil, nil
	}
	return analysisFromDoc(docs[0]), nil
}

// FindByStatus returns all analyses currently in the given status.
func (s *AnalysisStore) FindByStatus(ctx context.Context, status Status) ([]*Analysis, error) {
	query := fmt.Sprintf(`query { Analysis(filter: {status: {_eq: %q}}) { %s } }`, string(status), analysisFields)
	resp, err := s.db.Execute(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("analysis query error: %s", errMsg)
	}
	docs := resp.Docs("Analysis")
	analyses := make([]*Analysis, 0, len(docs))
	for _, doc := range docs {
		analyses = append(analyses, analysisFromDoc(doc))
	}
	return analyses, nil
}

// List returns every analysis, newest first is not guaranteed; callers sort
// on created_at when ordering matters.
func (s *AnalysisStore) List(ctx context.Context) ([]*Analysis, error) {
	query := fmt.Sprintf(`query { Analysis { %s } }`, analysisFields)
	resp, err := s.db.Execute(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	if errMsg := resp.Error(); errMsg != "" {
		return nil, fmt.Errorf("analysis query error: %s", errMsg)
	}
	docs := resp.Docs("Analysis")
	analyses := make([]*Analysis, 0, len(docs))
	for _, doc := range docs {
		analyses = append(analyses, analysisFromDoc(doc))
	}
	return analyses, nil
}

// SetStatus moves an analysis to a new status. The move must be a legal
// forward transition from the record's current status.
func (s *AnalysisStore) SetStatus(ctx context.Context, a *Analysis, status Status) error {
	if !a.Status.CanTransition(status) {
		return fmt.Errorf("illegal status transition %s -> %s for analysis %s", a.Status, status, a.ID)
	}
	if err := s.db.Update(ctx, "Analysis", a.ID, map[string]any{"status": string(status)}); err != nil {
		return fmt.Errorf("failed to update analysis status: %w", err)
	}
	a.Status = status
	return nil
}

// MarkErrored puts an analysis into the errored state with a message.
func (s *AnalysisStore) MarkErrored(ctx context.Context, a *Analysis, message string) error {
	if a.Status.Terminal() {
		return fmt.Errorf("analysis %s is already terminal (%s)", a.ID, a.Status)
	}
	err := s.db.Update(ctx, "Analysis", a.ID, map[string]any{
		"status":        string(StatusErrored),
		"error_message": message,
	})
	if err != nil {
		return fmt.Errorf("failed to mark analysis errored: %w", err)
	}
	a.Status = StatusErrored
	a.ErrorMessage = message
	return nil
}

// SetProcessedMarkdown stores the extracted markdown on the analysis.
func (s *AnalysisStore) SetProcessedMarkdown(ctx context.Context, a *Analysis, markdown string) error {
	if err := s.db.Update(ctx, "Analysis", a.ID, map[string]any{"processed_markdown": markdown}); err != nil {
		return fmt.Errorf("failed to store processed markdown: %w", err)
	}
	a.ProcessedMarkdown = markdown
	return nil
}

// SetPaperID links the analysis to its paper record.
func (s *AnalysisStore) SetPaperID(ctx context.Context, a *Analysis, paperID string) error {
	if err := s.db.Update(ctx, "Analysis", a.ID, map[string]any{"paper_id": paperID}); err != nil {
		return fmt.Errorf("failed to link analysis to paper: %w", err)
	}
	a.PaperID = paperID
	return nil
}
