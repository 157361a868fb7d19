// Package convert runs the external PDF-to-markdown engine and post-processes
// its output.
package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Nat1anWasTaken/paperly/internal/config"
	"github.com/Nat1anWasTaken/paperly/internal/home"
)

// outputBase is the filename stem the converter writes its artifacts under.
const outputBase = "output"

// Engine converts PDFs to markdown by shelling out to the configured
// converter command:
//
//	<command> <input.pdf> <output-base>
//
// The command must produce <output-base>.md and may produce
// <output-base>_images/ and <output-base>_metadata.json alongside it.
type Engine struct {
	home   *home.Dir
	cfg    config.ConverterConfig
	logger *slog.Logger
}

// Result is the output of one conversion.
type Result struct {
	Markdown string
	Images   map[string][]byte // extracted image filename -> bytes
	Metadata map[string]any    // converter metadata, nil when absent
}

// New creates a conversion engine.
func New(homeDir *home.Dir, cfg config.ConverterConfig, logger *slog.Logger) *Engine {
	return &Engine{home: homeDir, cfg: cfg, logger: logger}
}

// Convert validates the PDF, runs the converter in a scratch directory under
// the home dir and collects its artifacts. The scratch directory is removed
// on return.
func (e *Engine) Convert(ctx context.Context, analysisID string, pdf []byte) (*Result, error) {
	pageCount, err := api.PageCount(bytes.NewReader(pdf), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	workDir := e.home.ConvertPath(analysisID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(inputPath, pdf, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write input PDF: %w", err)
	}

	basePath := filepath.Join(workDir, outputBase)

	runCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	e.logger.Debug("running converter", "command", e.cfg.Command, "analysis_id", analysisID, "pages", pageCount)
	cmd := exec.CommandContext(runCtx, e.cfg.Command, inputPath, basePath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("converter failed: %w (output: %s)", err, string(output))
	}

	markdown, err := os.ReadFile(basePath + ".md")
	if err != nil {
		return nil, fmt.Errorf("converter did not produce markdown: %w", err)
	}

	result := &Result{Markdown: string(markdown)}

	result.Images, err = readImages(basePath + "_images")
	if err != nil {
		return nil, err
	}

	if metaBytes, err := os.ReadFile(basePath + "_metadata.json"); err == nil {
		if err := json.Unmarshal(metaBytes, &result.Metadata); err != nil {
			e.logger.Warn("ignoring malformed converter metadata", "analysis_id", analysisID, "error", err)
			result.Metadata = nil
		}
	}

	e.logger.Info("conversion complete",
		"analysis_id", analysisID,
		"pages", pageCount,
		"markdown_bytes", len(result.Markdown),
		"images", len(result.Images))
	return result, nil
}

// readImages loads every regular file from the converter's image directory.
// A missing directory means the document simply has no figures.
func readImages(dir string) (map[string][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	images := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read image %s: %w", entry.Name(), err)
		}
		images[entry.Name()] = data
	}
	return images, nil
}
