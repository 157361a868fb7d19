// Package summarize produces on-demand summaries of individual content
// blocks. Summaries are not persisted; each request asks the model anew.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Nat1anWasTaken/paperly/internal/defra"
	"github.com/Nat1anWasTaken/paperly/internal/llm"
	"github.com/Nat1anWasTaken/paperly/internal/store"
)

var (
	// ErrBlockNotFound is returned when the block does not exist.
	ErrBlockNotFound = errors.New("block not found")
	// ErrNoContent is returned for blocks with no extractable prose, such
	// as captionless figures.
	ErrNoContent = errors.New("block has no summarizable content")
)

const summarySystemPrompt = "You summarize academic paper content. Be accurate and concise; " +
	"never add information that is not in the content."

// Completer is the LLM surface the service uses.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Service summarizes blocks on demand.
type Service struct {
	Blocks *store.BlockStore
	LLM    Completer
	Logger *slog.Logger
}

// Summarize returns a short summary of the block's prose.
func (s *Service) Summarize(ctx context.Context, blockID string) (string, error) {
	if err := defra.ValidateID(blockID); err != nil {
		return "", fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
	}

	block, err := s.Blocks.Get(ctx, blockID)
	if err != nil {
		return "", err
	}
	if block == nil {
		return "", fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
	}

	content := block.PlainText()
	if content == "" {
		return "", fmt.Errorf("%w: %s", ErrNoContent, block.Kind)
	}

	summary, err := s.LLM.Complete(ctx, llm.Request{
		System:      summarySystemPrompt,
		Prompt:      "Summarize the following content in two or three sentences:\n\n" + content,
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("summary failed: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", errors.New("summary returned empty content")
	}

	s.Logger.Info("block summarized", "block_id", blockID, "kind", block.Kind)
	return summary, nil
}
