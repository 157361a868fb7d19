package markdown

import (
	"fmt"
	"strings"

	"github.com/Nat1anWasTaken/paperly/internal/store"
)

// Render serializes blocks back to markdown, one blank line between
// blocks. Parsing the result yields the same block sequence for every
// kind the parser emits.
func Render(blocks []*store.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if s := RenderBlock(b); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// RenderBlock serializes a single block to markdown. Kinds with no
// markdown form (quiz) render as an empty string.
func RenderBlock(b *store.Block) string {
	switch b.Kind {
	case store.KindHeader:
		level := b.Level
		if level < 1 {
			level = 1
		} else if level > 6 {
			level = 6
		}
		return strings.Repeat("#", level) + " " + b.Text
	case store.KindParagraph, store.KindFootnote, store.KindReference, store.KindCallout:
		return b.Text
	case store.KindFigure:
		return fmt.Sprintf("![%s](%s)", b.Caption, b.ImageURL)
	case store.KindTable:
		return renderTable(b)
	case store.KindEquation:
		return "$$" + b.Equation + "$$"
	case store.KindCodeBlock:
		return "```" + b.Language + "\n" + b.Code + "\n```"
	case store.KindQuote:
		return "> " + b.Text
	}
	return ""
}

func renderTable(b *store.Block) string {
	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("| ")
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString(" |\n")
	}
	writeRow(b.Columns)
	sep := make([]string, len(b.Columns))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, row := range b.Rows {
		writeRow(row)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
