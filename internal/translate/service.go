// Package translate produces and caches per-block translations. A block is
// translated at most once per language; later requests return the stored
// record.
package translate

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
	// ErrBlockNotFound is returned when the block does not exist.
	ErrBlockNotFound = errors.New("block not found")
	// ErrNotTranslatable is returned for block kinds with no natural
	// language content, such as figures.
	ErrNotTranslatable = errors.New("block kind is not translatable")
	// ErrUnsupportedLanguage is returned for languages outside the
	// supported set.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// SupportedLanguages is the fixed set of translation targets, as BCP 47
// codes.
var SupportedLanguages = map[string]bool{
	"en": true, "es": true, "fr": true, "de": true,
	"ja": true, "ko": true, "pt": true, "ru": true,
	"ar": true, "hi": true, "zh-CN": true, "zh-TW": true,
}

const translateSystemPrompt = "You translate academic paper content. Preserve markdown formatting, " +
	"technical terms and inline math. Respond with the translation only."

// Completer is the LLM surface the service uses.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Service translates blocks on demand.
type Service struct {
	Blocks       *store.BlockStore
	Translations *store.TranslationStore
	LLM          Completer
	Logger       *slog.Logger
}

// Translate returns the block's translation in the given language, creating
// and caching it on first request.
func (s *Service) Translate(ctx context.Context, blockID, language string) (*store.Translation, error) {
	language = strings.TrimSpace(language)
	if !SupportedLanguages[language] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	if err := defra.ValidateID(blockID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
	}

	block, err := s.Blocks.Get(ctx, blockID)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, blockID)
	}

	content, note, err := translatableContent(block)
	if err != nil {
		return nil, err
	}

	if existing, err := s.Translations.Find(ctx, blockID, language); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	prompt := fmt.Sprintf("Translate into %s:\n\n%s", language, content)
	if note != "" {
		prompt = note + "\n\n" + prompt
	}

	translated, err := s.LLM.Complete(ctx, llm.Request{
		System:      translateSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return nil, fmt.Errorf("translation returned empty content")
	}

	t := &store.Translation{BlockID: blockID, Content: translated, Language: language}
	if err := s.Translations.Create(ctx, t); err != nil {
		return nil, err
	}
	s.Logger.Info("block translated", "block_id", blockID, "language", language, "kind", block.Kind)
	return t, nil
}

// translatableContent extracts what should be translated for a block, plus
// an optional kind-specific instruction for the prompt. Figures carry no
// prose and reject translation outright.
func translatableContent(b *store.Block) (content, note string, err error) {
	switch b.Kind {
	case store.KindFigure:
		return "", "", fmt.Errorf("%w: %s", ErrNotTranslatable, b.Kind)
	case store.KindEquation:
		// Only the caption is natural language.
		if strings.TrimSpace(b.Caption) == "" {
			return "", "", fmt.Errorf("%w: equation has no caption", ErrNotTranslatable)
		}
		return b.Caption, "", nil
	case store.KindCodeBlock:
		if strings.TrimSpace(b.Code) == "" {
			return "", "", fmt.Errorf("%w: code block is empty", ErrNotTranslatable)
		}
		return markdown.RenderBlock(b),
			"Translate only the comments and string literals; leave the code itself unchanged.",
			nil
	case store.KindQuiz:
		parts := append([]string{b.Question}, b.Options...)
		if b.Explanation != "" {
			parts = append(parts, b.Explanation)
		}
		return strings.Join(parts, "\n"), "", nil
	}

	content = markdown.RenderBlock(b)
	if strings.TrimSpace(content) == "" {
		return "", "", fmt.Errorf("%w: %s has no content", ErrNotTranslatable, b.Kind)
	}
	return content, "", nil
}
