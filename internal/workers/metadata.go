package workers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Nat1anWasTaken/paperly/internal/llm"
	"github.com/Nat1anWasTaken/paperly/internal/markdown"
	"github.com/Nat1anWasTaken/paperly/internal/store"
)

const (
	// fallbackTitle is used when neither the LLM nor the document headings
	// yield a usable title.
	fallbackTitle = "Untitled Paper"

	// maxTitleLength rejects LLM titles that are clearly not titles.
	maxTitleLength = 200

	// titleExcerptLength bounds how much of the document the title prompt
	// sees. Titles live at the top.
	titleExcerptLength = 2000
)

const titleSystemPrompt = "You extract the title of an academic paper from its markdown text. " +
	"Respond with the title only, no quotes and no commentary."

// GenerateMetadata infers the paper title from the extracted markdown and
// creates the Paper record the content blocks will hang off.
type GenerateMetadata struct {
	Analyses *store.AnalysisStore
	Papers   *store.PaperStore
	LLM      Completer
	Logger   *slog.Logger
}

func (s *GenerateMetadata) Name() string { return "generate_metadata" }

func (s *GenerateMetadata) TargetStatus() store.Status { return store.StatusMarkdownExtracted }

func (s *GenerateMetadata) Process(ctx context.Context, a *store.Analysis) error {
	if err := s.Analyses.SetStatus(ctx, a, store.StatusGeneratingMetadata); err != nil {
		return err
	}

	title := s.inferTitle(ctx, a.ProcessedMarkdown)

	paper, err := s.Papers.Create(ctx, title)
	if err != nil {
		return err
	}
	if err := s.Analyses.SetPaperID(ctx, a, paper.ID); err != nil {
		return err
	}

	s.Logger.Info("paper created", "analysis_id", a.ID, "paper_id", paper.ID, "title", title)
	return s.Analyses.SetStatus(ctx, a, store.StatusMetadataGenerated)
}

// inferTitle asks the LLM for the title and falls back to the document's
// top-level heading when the answer is unusable. Title inference never
// fails the stage.
func (s *GenerateMetadata) inferTitle(ctx context.Context, md string) string {
	excerpt := md
	if len(excerpt) > titleExcerptLength {
		excerpt = excerpt[:titleExcerptLength]
	}

	title, err := s.LLM.Complete(ctx, llm.Request{
		System:      titleSystemPrompt,
		Prompt:      excerpt,
		Temperature: 0.1,
	})
	if err != nil {
		s.Logger.Warn("title inference failed, falling back to headings", "error", err)
		return headingTitle(md)
	}

	title = strings.Trim(strings.TrimSpace(title), `"`)
	if title == "" || len(title) > maxTitleLength {
		return headingTitle(md)
	}
	return title
}

// headingTitle returns the text of the first heading at the document's
// minimum heading level, or a fixed fallback when there are no headings.
func headingTitle(md string) string {
	minLevel := 0
	var title string
	for _, b := range markdown.Parse(md) {
		if b.Kind != store.KindHeader || b.Text == "" {
			continue
		}
		if minLevel == 0 || b.Level < minLevel {
			minLevel = b.Level
			title = b.Text
		}
	}
	if title == "" {
		return fallbackTitle
	}
	return title
}
