package dispatch

import (
	"fmt"

	"github.com/salmonumbrella/notion-cli/internal/notiondb"
	"github.com/salmonumbrella/notion-cli/internal/richtext"
)

// Diagnostic shown for blocks the service itself cannot represent.
const unsupportedByService = "❌ Unsupported block (unsupported by Notion API)"

// Describe maps a block to its instruction. It never fails; unknown kinds
// become a Fallback.
func Describe(b notiondb.Block) Instruction {
	h := Header{BlockID: b.ID, Kind: b.Type}
	text := richtext.Normalize(b.Content.RichText)

	switch b.Type {
	case notiondb.BlockParagraph:
		return Paragraph{Header: h, Text: text}
	case notiondb.BlockHeading1:
		return Heading{Header: h, Level: 1, Text: text}
	case notiondb.BlockHeading2:
		return Heading{Header: h, Level: 2, Text: text}
	case notiondb.BlockHeading3:
		return Heading{Header: h, Level: 3, Text: text}
	case notiondb.BlockBulletedListItem:
		return BulletedItem{Header: h, Text: text}
	case notiondb.BlockNumberedListItem:
		return NumberedItem{Header: h, Text: text}
	case notiondb.BlockToDo:
		return ChecklistItem{Header: h, Text: text, Checked: b.Content.Checked}
	case notiondb.BlockToggle:
		c := Collapsible{Header: h, Summary: text}
		if b.ChildrenResolved() {
			c.Children = DescribeAll(b.Children)
		} else {
			c.Unresolved = b.HasChildren
		}
		return c
	case notiondb.BlockChildPage:
		return SubPage{Header: h, Title: b.Content.Title}
	case notiondb.BlockImage:
		img := Image{Header: h}
		if b.Content.Media != nil {
			img.Source = b.Content.Media.URL
		}
		if len(b.Content.Caption) > 0 {
			img.Caption = b.Content.Caption[0].PlainText
		}
		return img
	case notiondb.BlockUnsupported:
		return Fallback{Header: h, Diagnostic: unsupportedByService}
	default:
		return Fallback{Header: h, Diagnostic: fmt.Sprintf("❌ Unsupported block (%s)", b.Type)}
	}
}

// DescribeAll maps blocks in order. The result is never nil.
func DescribeAll(blocks []notiondb.Block) []Instruction {
	out := make([]Instruction, len(blocks))
	for i, b := range blocks {
		out[i] = Describe(b)
	}
	return out
}

// UnresolvedIDs returns the block IDs of collapsibles, at any depth, whose
// children were never fetched.
func UnresolvedIDs(ins []Instruction) []string {
	var ids []string
	for _, in := range ins {
		c, ok := in.(Collapsible)
		if !ok {
			continue
		}
		if c.Unresolved {
			ids = append(ids, c.BlockID)
		}
		ids = append(ids, UnresolvedIDs(c.Children)...)
	}
	return ids
}
