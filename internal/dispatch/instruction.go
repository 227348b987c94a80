// Package dispatch maps resolved blocks to structural instructions for
// renderers. The mapping is total: every block yields an instruction.
package dispatch

import (
	"github.com/salmonumbrella/notion-cli/internal/notiondb"
	"github.com/salmonumbrella/notion-cli/internal/richtext"
)

// Header identifies the block an instruction was derived from.
type Header struct {
	BlockID string             `json:"block_id"`
	Kind    notiondb.BlockType `json:"kind"`
}

func (h Header) header() Header { return h }

// Instruction is one of the variant types in this package.
type Instruction interface {
	header() Header
}

// HeaderOf returns the block ID and kind of ins.
func HeaderOf(ins Instruction) Header {
	return ins.header()
}

// Paragraph is a run of body text.
type Paragraph struct {
	Header
	Text []richtext.Segment `json:"text"`
}

// Heading is a section title; Level is 1 to 3.
type Heading struct {
	Header
	Level int                `json:"level"`
	Text  []richtext.Segment `json:"text"`
}

// BulletedItem is one entry of an unordered list.
type BulletedItem struct {
	Header
	Text []richtext.Segment `json:"text"`
}

// NumberedItem is one entry of an ordered list.
type NumberedItem struct {
	Header
	Text []richtext.Segment `json:"text"`
}

// ChecklistItem is a to-do entry with its checked state.
type ChecklistItem struct {
	Header
	Text    []richtext.Segment `json:"text"`
	Checked bool               `json:"checked"`
}

// Collapsible is a toggle. Unresolved is set when the block reports
// children that were never fetched; Children is nil in that case.
type Collapsible struct {
	Header
	Summary    []richtext.Segment `json:"summary"`
	Children   []Instruction      `json:"children"`
	Unresolved bool               `json:"unresolved,omitempty"`
}

// SubPage references a child page by title.
type SubPage struct {
	Header
	Title string `json:"title"`
}

// Image is a picture with its resolved source URL.
type Image struct {
	Header
	Source  string `json:"source"`
	Caption string `json:"caption,omitempty"`
}

// Fallback stands in for any kind without a dedicated variant.
type Fallback struct {
	Header
	Diagnostic string `json:"diagnostic"`
}
