// Package chat answers free-form questions about a paper, grounded in the
// paper's content chain.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Nat1anWasTaken/paperly/internal/defra"
	"github.com/Nat1anWasTaken/paperly/internal/llm"
	"github.com/Nat1anWasTaken/paperly/internal/markdown"
	"github.com/Nat1anWasTaken/paperly/internal/store"
)

var (
	// ErrPaperNotFound is returned when the paper does not exist.
	ErrPaperNotFound = errors.New("paper not found")
	// ErrInvalidRole is returned when a history message has a role other
	// than user or assistant.
	ErrInvalidRole = errors.New("chat history roles must be user or assistant")
)

const chatSystemPrompt = "You answer questions about an academic paper. Ground every answer in " +
	"the provided paper content and say so when the content does not contain the answer."

// maxContextChars caps how much rendered paper content goes into one
// prompt.
const maxContextChars = 24000

// Message is one prior turn of the conversation.
type Message struct {
	Role    string
	Content string
}

// Completer is the LLM surface the service uses.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Service answers questions about papers.
type Service struct {
	Papers *store.PaperStore
	Blocks *store.BlockStore
	LLM    Completer
	Logger *slog.Logger
}

// Ask answers a question about a paper. Prior turns are replayed into the
// prompt so follow-up questions keep their context.
func (s *Service) Ask(ctx context.Context, paperID string, history []Message, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question is required")
	}
	if err := defra.ValidateID(paperID); err != nil {
		return "", fmt.Errorf("%w: %s", ErrPaperNotFound, paperID)
	}

	paper, err := s.Papers.Get(ctx, paperID)
	if err != nil {
		return "", err
	}
	if paper == nil {
		return "", fmt.Errorf("%w: %s", ErrPaperNotFound, paperID)
	}

	blocks, err := s.Blocks.BlocksInOrder(ctx, paperID)
	if err != nil {
		return "", err
	}
	content := markdown.Render(blocks)
	if len(content) > maxContextChars {
		content = content[:maxContextChars]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Paper: %s\n\n%s\n\n", paper.Title, content)
	for _, m := range history {
		switch m.Role {
		case "user":
			fmt.Fprintf(&b, "User: %s\n", m.Content)
		case "assistant":
			fmt.Fprintf(&b, "Assistant: %s\n", m.Content)
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidRole, m.Role)
		}
	}
	fmt.Fprintf(&b, "User: %s", question)

	reply, err := s.LLM.Complete(ctx, llm.Request{
		System:      chatSystemPrompt,
		Prompt:      b.String(),
		Temperature: 0.3,
		MaxTokens:   1500,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.New("chat returned an empty reply")
	}

	s.Logger.Info("chat answered", "paper_id", paperID, "turns", len(history))
	return reply, nil
}
