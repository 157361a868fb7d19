// Package markdown converts extracted markdown into typed content blocks
// and back. The parser is a line scanner rather than a full CommonMark
// implementation: converter output is regular enough that block boundaries
// map cleanly onto line patterns, and keeping the scanner explicit keeps
// block boundaries identical to what the pipeline stores.
package markdown

import (
	"regexp"
	"strings"

	"github.com/Nat1anWasTaken/paperly/internal/store"
)

var (
	headerRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	imageRe  = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)]+)\)\s*$`)
	// A table separator row is pipes around runs of dashes with optional
	// alignment colons.
	tableSeparatorRe = regexp.MustCompile(`^\|?[\s:|-]+\|?$`)
)

// Parse scans markdown into an ordered slice of blocks. Blocks come back
// without IDs or paper links; the caller persists them.
func Parse(content string) []*store.Block {
	lines := strings.Split(content, "\n")
	var blocks []*store.Block
	var paragraph []string

	flushParagraph := func() {
		if len(paragraph) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(paragraph, " "))
		paragraph = paragraph[:0]
		if text == "" {
			return
		}
		blocks = append(blocks, &store.Block{Kind: store.KindParagraph, Text: text})
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flushParagraph()
			continue
		}

		if m := headerRe.FindStringSubmatch(trimmed); m != nil {
			flushParagraph()
			blocks = append(blocks, &store.Block{
				Kind:  store.KindHeader,
				Level: len(m[1]),
				Text:  strings.TrimSpace(m[2]),
			})
			continue
		}

		if strings.HasPrefix(trimmed, "```") {
			flushParagraph()
			block, consumed := parseFencedCode(lines[i:])
			blocks = append(blocks, block)
			i += consumed - 1
			continue
		}

		if strings.HasPrefix(trimmed, "|") && isTableStart(lines[i:]) {
			flushParagraph()
			block, consumed := parseTable(lines[i:])
			blocks = append(blocks, block)
			i += consumed - 1
			continue
		}

		if m := imageRe.FindStringSubmatch(trimmed); m != nil {
			flushParagraph()
			blocks = append(blocks, &store.Block{
				Kind:     store.KindFigure,
				Caption:  strings.TrimSpace(m[1]),
				ImageURL: m[2],
			})
			continue
		}

		if strings.HasPrefix(trimmed, ">") {
			flushParagraph()
			block, consumed := parseBlockquote(lines[i:])
			blocks = append(blocks, block)
			i += consumed - 1
			continue
		}

		if strings.HasPrefix(trimmed, "$$") || strings.HasPrefix(trimmed, `\[`) {
			flushParagraph()
			block, consumed := parseEquation(lines[i:])
			blocks = append(blocks, block)
			i += consumed - 1
			continue
		}

		paragraph = append(paragraph, trimmed)
	}
	flushParagraph()

	return blocks
}

// parseFencedCode consumes a ``` fence through its closing fence. An
// unterminated fence runs to the end of input.
func parseFencedCode(lines []string) (*store.Block, int) {
	language := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[0]), "```"))
	var body []string
	consumed := 1
	for _, line := range lines[1:] {
		consumed++
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			break
		}
		body = append(body, line)
	}
	return &store.Block{
		Kind:     store.KindCodeBlock,
		Code:     strings.Join(body, "\n"),
		Language: language,
	}, consumed
}

// isTableStart requires the line after a pipe row to be a separator row,
// otherwise the pipe line is treated as paragraph text.
func isTableStart(lines []string) bool {
	if len(lines) < 2 {
		return false
	}
	next := strings.TrimSpace(lines[1])
	return strings.Contains(next, "-") && tableSeparatorRe.MatchString(next)
}

// parseTable consumes consecutive pipe rows. The first row is the column
// header and the separator row is skipped.
func parseTable(lines []string) (*store.Block, int) {
	consumed := 0
	var rows [][]string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "|") {
			break
		}
		consumed++
		if tableSeparatorRe.MatchString(trimmed) && strings.Contains(trimmed, "-") {
			continue
		}
		rows = append(rows, splitTableRow(trimmed))
	}

	block := &store.Block{Kind: store.KindTable}
	if len(rows) > 0 {
		block.Columns = rows[0]
		block.Rows = rows[1:]
	}
	if block.Rows == nil {
		block.Rows = [][]string{}
	}
	return block, consumed
}

func splitTableRow(line string) []string {
	line = strings.Trim(line, "|")
	cells := strings.Split(line, "|")
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

// parseBlockquote consumes consecutive > lines into one quote.
func parseBlockquote(lines []string) (*store.Block, int) {
	consumed := 0
	var body []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, ">") {
			break
		}
		consumed++
		body = append(body, strings.TrimSpace(strings.TrimPrefix(trimmed, ">")))
	}
	return &store.Block{
		Kind: store.KindQuote,
		Text: strings.TrimSpace(strings.Join(body, " ")),
	}, consumed
}

// parseEquation consumes a display equation delimited by $$ pairs or
// \[ ... \]. A one-line equation carries both delimiters on the same line.
func parseEquation(lines []string) (*store.Block, int) {
	first := strings.TrimSpace(lines[0])

	opener, closer := "$$", "$$"
	if strings.HasPrefix(first, `\[`) {
		opener, closer = `\[`, `\]`
	}

	inner := strings.TrimPrefix(first, opener)
	if rest := strings.TrimSpace(inner); strings.HasSuffix(rest, closer) && rest != closer {
		return &store.Block{
			Kind:     store.KindEquation,
			Equation: strings.TrimSpace(strings.TrimSuffix(rest, closer)),
		}, 1
	}

	body := []string{}
	if trimmed := strings.TrimSpace(inner); trimmed != "" {
		body = append(body, trimmed)
	}
	consumed := 1
	for _, line := range lines[1:] {
		consumed++
		trimmed := strings.TrimSpace(line)
		if strings.HasSuffix(trimmed, closer) {
			if leading := strings.TrimSpace(strings.TrimSuffix(trimmed, closer)); leading != "" {
				body = append(body, leading)
			}
			break
		}
		body = append(body, trimmed)
	}
	return &store.Block{
		Kind:     store.KindEquation,
		Equation: strings.TrimSpace(strings.Join(body, "\n")),
	}, consumed
}
