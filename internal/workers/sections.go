package workers

import (
	"strings"

	"github.com/Nat1anWasTaken/paperly/internal/store"
)

// Section is a contiguous run of content under one header. Content before
// the first header forms a headerless preamble section.
type Section struct {
	Header *store.Block
	Blocks []*store.Block
}

// Last returns the section's final block, where enrichment blocks are
// inserted. A section with no content anchors on its header.
func (s *Section) Last() *store.Block {
	if len(s.Blocks) > 0 {
		return s.Blocks[len(s.Blocks)-1]
	}
	return s.Header
}

// Title returns the header text, empty for the preamble.
func (s *Section) Title() string {
	if s.Header == nil {
		return ""
	}
	return s.Header.Text
}

// SplitSections partitions ordered blocks into sections at header blocks.
// Quiz blocks are left out so re-running enrichment does not quiz its own
// output.
// sectionText joins the prose of a section's blocks for prompting. A
// section whose blocks carry no prose, such as captionless figures, yields
// an empty string.
func sectionText(blocks []*store.Block) string {
	var parts []string
	for _, b := range blocks {
		if t := b.PlainText(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

func SplitSections(ordered []*store.Block) []*Section {
	var sections []*Section
	var current *Section

	for _, b := range ordered {
		if b.Kind == store.KindQuiz {
			continue
		}
		if b.Kind == store.KindHeader {
			if current != nil {
				sections = append(sections, current)
			}
			current = &Section{Header: b}
			continue
		}
		if current == nil {
			current = &Section{}
		}
		current.Blocks = append(current.Blocks, b)
	}
	if current != nil {
		sections = append(sections, current)
	}
	return sections
}
