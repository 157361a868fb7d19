package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Nat1anWasTaken/paperly/internal/convert"
	"github.com/Nat1anWasTaken/paperly/internal/store"
)

// ExtractMarkdown is the first pipeline stage: it downloads the uploaded
// PDF, runs the converter and stores the resulting markdown with image
// references rewritten to uploaded URLs.
type ExtractMarkdown struct {
	Analyses  *store.AnalysisStore
	Storage   ObjectStore
	Converter Converter
	Logger    *slog.Logger
}

func (s *ExtractMarkdown) Name() string { return "extract_markdown" }

func (s *ExtractMarkdown) TargetStatus() store.Status { return store.StatusCreated }

func (s *ExtractMarkdown) Process(ctx context.Context, a *store.Analysis) error {
	if err := s.Analyses.SetStatus(ctx, a, store.StatusExtractingMarkdown); err != nil {
		return err
	}

	pdf, err := s.Storage.Get(ctx, a.FileKey)
	if err != nil {
		return fmt.Errorf("failed to download PDF: %w", err)
	}

	result, err := s.Converter.Convert(ctx, a.ID, pdf)
	if err != nil {
		return err
	}

	md := result.Markdown
	if len(result.Images) > 0 {
		urls, err := s.uploadImages(ctx, result.Images)
		if err != nil {
			return err
		}
		md = convert.RewriteImageLinks(md, urls)
	}

	if err := s.Analyses.SetProcessedMarkdown(ctx, a, md); err != nil {
		return err
	}
	return s.Analyses.SetStatus(ctx, a, store.StatusMarkdownExtracted)
}

// uploadImages pushes extracted images to object storage and returns the
// filename to public URL mapping used for link rewriting.
func (s *ExtractMarkdown) uploadImages(ctx context.Context, images map[string][]byte) (map[string]string, error) {
	names := make([]string, 0, len(images))
	for name := range images {
		names = append(names, name)
	}
	sort.Strings(names)

	urls := make(map[string]string, len(images))
	for _, name := range names {
		key := convert.ImageKey(name)
		if err := s.Storage.Put(ctx, key, images[name], convert.ContentType(name)); err != nil {
			return nil, fmt.Errorf("failed to upload image %s: %w", name, err)
		}
		urls[name] = s.Storage.URL(key)
	}
	s.Logger.Debug("uploaded figure images", "count", len(urls))
	return urls, nil
}
