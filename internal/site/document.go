// Package site assembles resolved pages into documents and maps page
// identifiers to build outcomes.
package site

import (
	"errors"
	"time"

	"github.com/salmonumbrella/notion-cli/internal/dispatch"
	"github.com/salmonumbrella/notion-cli/internal/resolve"
	"github.com/salmonumbrella/notion-cli/internal/richtext"
)

// Document is a page ready for rendering.
type Document struct {
	ID         string                 `json:"id"`
	URL        string                 `json:"url,omitempty"`
	Title      []richtext.Segment     `json:"title"`
	TitleText  string                 `json:"title_text"`
	LastEdited time.Time              `json:"last_edited"`
	Blocks     []dispatch.Instruction `json:"blocks"`
	// Unresolved lists collapsibles whose children were never fetched.
	Unresolved []string `json:"unresolved,omitempty"`
	// Failed lists containers whose children fetch failed.
	Failed []string `json:"failed,omitempty"`

	failures []*resolve.SubtreeError
}

// NewDocument builds a Document from a resolution.
func NewDocument(res *resolve.Resolution) *Document {
	doc := &Document{
		Blocks:   dispatch.DescribeAll(res.Blocks),
		failures: res.Failures,
	}
	if p := res.Page; p != nil {
		doc.ID = p.ID
		doc.URL = p.URL
		doc.LastEdited = p.LastEditedTime
		doc.Title = richtext.Normalize(p.TitleProperty())
		doc.TitleText = richtext.PlainText(doc.Title)
	} else {
		doc.Title = []richtext.Segment{}
	}
	doc.Unresolved = dispatch.UnresolvedIDs(doc.Blocks)
	for _, f := range res.Failures {
		doc.Failed = append(doc.Failed, f.BlockID)
	}
	return doc
}

// Partial reports whether some container could not be resolved.
func (d *Document) Partial() bool {
	return len(d.failures) > 0
}

// Err joins the subtree errors, or returns nil.
func (d *Document) Err() error {
	if len(d.failures) == 0 {
		return nil
	}
	errs := make([]error, len(d.failures))
	for i, f := range d.failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}
