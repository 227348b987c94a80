// Package richtext turns annotated API text runs into presentation-ready
// segments.
package richtext

import (
	"strings"

	"github.com/salmonumbrella/notion-cli/internal/notiondb"
)

// DefaultColor is the colour token meaning "no override".
const DefaultColor = "default"

// Segment is a run of text with uniform styling.
type Segment struct {
	Text          string `json:"text"`
	Link          string `json:"link,omitempty"`
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Underline     bool   `json:"underline,omitempty"`
	Code          bool   `json:"code,omitempty"`
	// Color is empty when the service reports the default colour.
	Color string `json:"color,omitempty"`
}

// Normalize maps each run to one segment, preserving order. Runs are never
// merged or split. A nil or empty input yields an empty slice.
func Normalize(runs []notiondb.RichText) []Segment {
	segments := make([]Segment, 0, len(runs))
	for _, run := range runs {
		segments = append(segments, fromRun(run))
	}
	return segments
}

func fromRun(run notiondb.RichText) Segment {
	seg := Segment{
		Text: run.Content(),
		Link: run.LinkURL(),
	}
	if a := run.Annotations; a != nil {
		seg.Bold = a.Bold
		seg.Italic = a.Italic
		seg.Strikethrough = a.Strikethrough
		seg.Underline = a.Underline
		seg.Code = a.Code
		if a.Color != DefaultColor {
			seg.Color = a.Color
		}
	}
	return seg
}

// Classes returns the style class names for the segment in a fixed order.
func (s Segment) Classes() []string {
	var classes []string
	if s.Bold {
		classes = append(classes, "bold")
	}
	if s.Code {
		classes = append(classes, "code")
	}
	if s.Italic {
		classes = append(classes, "italic")
	}
	if s.Strikethrough {
		classes = append(classes, "strikethrough")
	}
	if s.Underline {
		classes = append(classes, "underline")
	}
	return classes
}

// HasLink reports whether the segment is a hyperlink.
func (s Segment) HasLink() bool {
	return s.Link != ""
}

// PlainText concatenates the text of all segments.
func PlainText(segments []Segment) string {
	var sb strings.Builder
	for _, s := range segments {
		sb.WriteString(s.Text)
	}
	return sb.String()
}
