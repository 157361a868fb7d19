package markdown

import (
	"testing"

	"github.com/Nat1anWasTaken/paperly/internal/store"
)

func TestParseHeadersAndParagraphs(t *testing.T) {
	content := "# Title\n\nSome text.\n\n## Sub\n\nMore text."
	blocks := Parse(content)

	if len(blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(blocks))
	}
	if blocks[0].Kind != store.KindHeader || blocks[0].Level != 1 || blocks[0].Text != "Title" {
		t.Errorf("unexpected first block: %+v", blocks[0])
	}
	if blocks[1].Kind != store.KindParagraph || blocks[1].Text != "Some text." {
		t.Errorf("unexpected second block: %+v", blocks[1])
	}
	if blocks[2].Kind != store.KindHeader || blocks[2].Level != 2 || blocks[2].Text != "Sub" {
		t.Errorf("unexpected third block: %+v", blocks[2])
	}
	if blocks[3].Kind != store.KindParagraph || blocks[3].Text != "More text." {
		t.Errorf("unexpected fourth block: %+v", blocks[3])
	}
}

func TestParseMultilineParagraph(t *testing.T) {
	content := "First line\ncontinues here.\n\nNext paragraph."
	blocks := Parse(content)

	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Text != "First line continues here." {
		t.Errorf("adjacent lines should join into one paragraph, got %q", blocks[0].Text)
	}
}

func TestParseFencedCode(t *testing.T) {
	content := "```go\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n```\n\nAfter."
	blocks := Parse(content)

	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	code := blocks[0]
	if code.Kind != store.KindCodeBlock {
		t.Fatalf("expected code block, got %s", code.Kind)
	}
	if code.Language != "go" {
		t.Errorf("unexpected language: %q", code.Language)
	}
	if code.Code != "func main() {\n\tfmt.Println(\"hi\")\n}" {
		t.Errorf("unexpected code body: %q", code.Code)
	}
}

func TestParseUnterminatedFence(t *testing.T) {
	blocks := Parse("```\nno closing fence")
	if len(blocks) != 1 || blocks[0].Kind != store.KindCodeBlock {
		t.Fatalf("unexpected blocks: %+v", blocks)
	}
	if blocks[0].Code != "no closing fence" {
		t.Errorf("unexpected code body: %q", blocks[0].Code)
	}
}

func TestParseTable(t *testing.T) {
	content := "| Name | Value |\n| --- | ---: |\n| a | 1 |\n| b | 2 |"
	blocks := Parse(content)

	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	tbl := blocks[0]
	if tbl.Kind != store.KindTable {
		t.Fatalf("expected table, got %s", tbl.Kind)
	}
	if len(tbl.Columns) != 2 || tbl.Columns[0] != "Name" || tbl.Columns[1] != "Value" {
		t.Errorf("unexpected columns: %v", tbl.Columns)
	}
	if len(tbl.Rows) != 2 || tbl.Rows[0][0] != "a" || tbl.Rows[1][1] != "2" {
		t.Errorf("unexpected rows: %v", tbl.Rows)
	}
}

func TestParsePipeLineWithoutSeparatorIsParagraph(t *testing.T) {
	blocks := Parse("| not actually | a table\nplain text")
	if len(blocks) != 1 || blocks[0].Kind != store.KindParagraph {
		t.Fatalf("pipe line without separator should be a paragraph: %+v", blocks)
	}
}

func TestParseImage(t *testing.T) {
	blocks := Parse("![Figure 1: results](images/fig1.png)")
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	fig := blocks[0]
	if fig.Kind != store.KindFigure {
		t.Fatalf("expected figure, got %s", fig.Kind)
	}
	if fig.Caption != "Figure 1: results" || fig.ImageURL != "images/fig1.png" {
		t.Errorf("unexpected figure: %+v", fig)
	}
}

func TestParseBlockquote(t *testing.T) {
	blocks := Parse("> first line\n> second line\n\nafter")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Kind != store.KindQuote || blocks[0].Text != "first line second line" {
		t.Errorf("unexpected quote: %+v", blocks[0])
	}
}

func TestParseEquation(t *testing.T) {
	t.Run("single line dollars", func(t *testing.T) {
		blocks := Parse("$$E = mc^2$$")
		if len(blocks) != 1 || blocks[0].Kind != store.KindEquation {
			t.Fatalf("unexpected blocks: %+v", blocks)
		}
		if blocks[0].Equation != "E = mc^2" {
			t.Errorf("unexpected equation: %q", blocks[0].Equation)
		}
	})

	t.Run("multi line dollars", func(t *testing.T) {
		blocks := Parse("$$\n\\sum_i x_i\n$$")
		if len(blocks) != 1 || blocks[0].Equation != `\sum_i x_i` {
			t.Fatalf("unexpected blocks: %+v", blocks)
		}
	})

	t.Run("bracket delimiters", func(t *testing.T) {
		blocks := Parse(`\[ a^2 + b^2 = c^2 \]`)
		if len(blocks) != 1 || blocks[0].Equation != "a^2 + b^2 = c^2" {
			t.Fatalf("unexpected blocks: %+v", blocks)
		}
	})
}

func TestParseMixedDocument(t *testing.T) {
	content := `# Paper

Intro paragraph.

![diagram](img/d.png)

| A | B |
| - | - |
| 1 | 2 |

> quoted

$$x = y$$

` + "```python\nprint(1)\n```"

	blocks := Parse(content)
	kinds := []store.BlockKind{
		store.KindHeader, store.KindParagraph, store.KindFigure,
		store.KindTable, store.KindQuote, store.KindEquation,
		store.KindCodeBlock,
	}
	if len(blocks) != len(kinds) {
		t.Fatalf("expected %d blocks, got %d", len(kinds), len(blocks))
	}
	for i, k := range kinds {
		if blocks[i].Kind != k {
			t.Errorf("block %d: expected %s, got %s", i, k, blocks[i].Kind)
		}
	}
}

func TestRenderRoundTrip(t *testing.T) {
	content := "# Title\n\nSome text.\n\n![cap](u.png)\n\n> a quote\n\n$$x+y$$"
	first := Parse(content)
	second := Parse(Render(first))

	if len(first) != len(second) {
		t.Fatalf("round trip changed block count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Kind != second[i].Kind || first[i].Text != second[i].Text {
			t.Errorf("block %d changed: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRenderTable(t *testing.T) {
	b := &store.Block{
		Kind:    store.KindTable,
		Columns: []string{"A", "B"},
		Rows:    [][]string{{"1", "2"}},
	}
	got := RenderBlock(b)
	want := "| A | B |\n| --- | --- |\n| 1 | 2 |"
	if got != want {
		t.Errorf("unexpected table rendering:\n%s", got)
	}
}
