package workers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Nat1anWasTaken/paperly/internal/markdown"
	"github.com/Nat1anWasTaken/paperly/internal/store"
)

// IntoBlocks parses the processed markdown into typed blocks and persists
// them as the paper's content chain.
type IntoBlocks struct {
	Analyses *store.AnalysisStore
	Blocks   *store.BlockStore
	Logger   *slog.Logger
}

func (s *IntoBlocks) Name() string { return "process_into_blocks" }

func (s *IntoBlocks) TargetStatus() store.Status { return store.StatusMetadataGenerated }

func (s *IntoBlocks) Process(ctx context.Context, a *store.Analysis) error {
	if err := s.Analyses.SetStatus(ctx, a, store.StatusProcessingIntoBlocks); err != nil {
		return err
	}
	if a.PaperID == "" {
		return fmt.Errorf("analysis %s has no paper", a.ID)
	}

	parsed := markdown.Parse(a.ProcessedMarkdown)
	blocks := parsed[:0]
	for _, b := range parsed {
		if !b.Kind.Valid() {
			s.Logger.Warn("skipping block of unknown kind", "analysis_id", a.ID, "kind", b.Kind)
			continue
		}
		blocks = append(blocks, b)
	}
	if len(blocks) == 0 {
		return fmt.Errorf("markdown produced no content blocks")
	}

	if _, err := s.Blocks.SaveChain(ctx, a.PaperID, blocks); err != nil {
		return err
	}

	s.Logger.Info("content blocks stored", "analysis_id", a.ID, "paper_id", a.PaperID, "blocks", len(blocks))
	return s.Analyses.SetStatus(ctx, a, store.StatusBlocksProcessed)
}
