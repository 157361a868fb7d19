package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Nat1anWasTaken/paperly/internal/llm"
	"github.com/Nat1anWasTaken/paperly/internal/store"
)

const (
	quizOptionCount = 4

	quizTemperature = 0.7
	quizMaxTokens   = 2000
)

const quizSystemPrompt = "You write multiple-choice comprehension questions about a section of " +
	"an academic paper. Questions must be answerable from the section text alone."

// quizResponse is the structured output shape for one section.
type quizResponse struct {
	Questions []quizQuestion `json:"questions"`
}

type quizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// quizSchema constrains the model to exactly count well-formed questions.
func quizSchema(count int) map[string]any {
	return map[string]any{
		"type":                 "object",
		"required":             []string{"questions"},
		"additionalProperties": false,
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": count,
				"maxItems": count,
				"items": map[string]any{
					"type":                 "object",
					"required":             []string{"question", "options", "correct_answer", "explanation"},
					"additionalProperties": false,
					"properties": map[string]any{
						"question": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":     "array",
							"minItems": quizOptionCount,
							"maxItems": quizOptionCount,
							"items":    map[string]any{"type": "string"},
						},
						"correct_answer": map[string]any{
							"type":    "integer",
							"minimum": 0,
							"maximum": quizOptionCount - 1,
						},
						"explanation": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

// GenerateQuizzes appends comprehension quiz blocks to the end of each
// section. A section that fails generation is skipped rather than failing
// the whole analysis.
type GenerateQuizzes struct {
	Analyses  *store.AnalysisStore
	Blocks    *store.BlockStore
	LLM       Completer
	QuizCount int
	Logger    *slog.Logger
}

func (s *GenerateQuizzes) Name() string { return "generate_quizzes" }

func (s *GenerateQuizzes) TargetStatus() store.Status { return store.StatusBlocksProcessed }

func (s *GenerateQuizzes) Process(ctx context.Context, a *store.Analysis) error {
	if err := s.Analyses.SetStatus(ctx, a, store.StatusGeneratingQuizzes); err != nil {
		return err
	}
	if a.PaperID == "" {
		return fmt.Errorf("analysis %s has no paper", a.ID)
	}

	count := s.QuizCount
	if count <= 0 {
		count = 3
	}

	ordered, err := s.Blocks.BlocksInOrder(ctx, a.PaperID)
	if err != nil {
		return err
	}

	generated := 0
	for _, section := range SplitSections(ordered) {
		// Content before the first header belongs to no section.
		if section.Header == nil {
			continue
		}
		content := sectionText(section.Blocks)
		if content == "" {
			continue
		}
		anchor := section.Last()

		questions, err := s.generate(ctx, section.Title(), content, count)
		if err != nil {
			s.Logger.Warn("skipping quiz for section",
				"analysis_id", a.ID, "section", section.Title(), "error", err)
			continue
		}

		for _, q := range questions {
			quiz := &store.Block{
				Kind:          store.KindQuiz,
				Question:      q.Question,
				Options:       q.Options,
				CorrectAnswer: q.CorrectAnswer,
				Explanation:   q.Explanation,
			}
			if err := s.Blocks.InsertAfter(ctx, anchor, quiz); err != nil {
				return err
			}
			anchor = quiz
			generated++
		}
	}

	s.Logger.Info("quiz generation complete", "analysis_id", a.ID, "quizzes", generated)
	return s.Analyses.SetStatus(ctx, a, store.StatusCompleted)
}

func (s *GenerateQuizzes) generate(ctx context.Context, title, content string, count int) ([]quizQuestion, error) {
	prompt := fmt.Sprintf("Write %d multiple-choice questions with %d options each about the following section.\n\n",
		count, quizOptionCount)
	if title != "" {
		prompt += "Section: " + title + "\n\n"
	}
	prompt += content

	var resp quizResponse
	err := s.LLM.CompleteStructured(ctx, llm.Request{
		System:      quizSystemPrompt,
		Prompt:      prompt,
		Temperature: quizTemperature,
		MaxTokens:   quizMaxTokens,
	}, "section_quizzes", quizSchema(count), &resp)
	if err != nil {
		return nil, err
	}

	for i, q := range resp.Questions {
		if len(q.Options) != quizOptionCount || q.CorrectAnswer < 0 || q.CorrectAnswer >= quizOptionCount {
			return nil, fmt.Errorf("question %d is malformed", i)
		}
	}
	return resp.Questions, nil
}
