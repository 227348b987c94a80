package render

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/salmonumbrella/notion-cli/internal/dispatch"
	"github.com/salmonumbrella/notion-cli/internal/richtext"
	"github.com/salmonumbrella/notion-cli/internal/site"
)

// HTML writes doc as a standalone HTML page.
func HTML(w io.Writer, doc *site.Document) error {
	return html.Render(w, htmlDocument(doc))
}

func htmlDocument(doc *site.Document) *html.Node {
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	htmlEl := element(atom.Html)
	root.AppendChild(htmlEl)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, attr("charset", "utf-8")))
	title := element(atom.Title)
	title.AppendChild(textNode(doc.TitleText))
	head.AppendChild(title)
	htmlEl.AppendChild(head)

	body := element(atom.Body)
	htmlEl.AppendChild(body)

	article := element(atom.Article, attr("class", "container"))
	body.AppendChild(article)

	h1 := element(atom.H1, attr("class", "name"))
	appendSegments(h1, doc.Title)
	article.AppendChild(h1)

	section := element(atom.Section)
	appendBlocks(section, doc.Blocks)
	article.AppendChild(section)

	return root
}

func appendBlocks(parent *html.Node, blocks []dispatch.Instruction) {
	// list holds the open <ul> or <ol> while consecutive items are emitted.
	var list *html.Node

	for _, in := range blocks {
		var listTag atom.Atom
		switch in.(type) {
		case dispatch.BulletedItem:
			listTag = atom.Ul
		case dispatch.NumberedItem:
			listTag = atom.Ol
		}
		if listTag == 0 {
			list = nil
		} else if list == nil || list.DataAtom != listTag {
			list = element(listTag)
			parent.AppendChild(list)
		}

		switch b := in.(type) {
		case dispatch.Paragraph:
			p := element(atom.P)
			appendSegments(p, b.Text)
			parent.AppendChild(p)
		case dispatch.Heading:
			h := element(headingAtom(b.Level))
			appendSegments(h, b.Text)
			parent.AppendChild(h)
		case dispatch.BulletedItem:
			li := element(atom.Li)
			appendSegments(li, b.Text)
			list.AppendChild(li)
		case dispatch.NumberedItem:
			li := element(atom.Li)
			appendSegments(li, b.Text)
			list.AppendChild(li)
		case dispatch.ChecklistItem:
			parent.AppendChild(checklistItem(b))
		case dispatch.Collapsible:
			details := element(atom.Details)
			summary := element(atom.Summary)
			appendSegments(summary, b.Summary)
			details.AppendChild(summary)
			if b.Unresolved {
				p := element(atom.P, attr("class", "unresolved"))
				p.AppendChild(textNode(unresolvedNote))
				details.AppendChild(p)
			} else {
				appendBlocks(details, b.Children)
			}
			parent.AppendChild(details)
		case dispatch.SubPage:
			p := element(atom.P)
			p.AppendChild(textNode(b.Title))
			parent.AppendChild(p)
		case dispatch.Image:
			parent.AppendChild(figure(b))
		case dispatch.Fallback:
			p := element(atom.P, attr("class", "unsupported"))
			p.AppendChild(textNode(b.Diagnostic))
			parent.AppendChild(p)
		}
	}
}

func checklistItem(b dispatch.ChecklistItem) *html.Node {
	div := element(atom.Div)
	label := element(atom.Label, attr("for", b.BlockID))
	input := element(atom.Input, attr("type", "checkbox"), attr("id", b.BlockID))
	if b.Checked {
		input.Attr = append(input.Attr, attr("checked", ""))
	}
	label.AppendChild(input)
	label.AppendChild(textNode(" "))
	appendSegments(label, b.Text)
	div.AppendChild(label)
	return div
}

func figure(b dispatch.Image) *html.Node {
	fig := element(atom.Figure)
	fig.AppendChild(element(atom.Img, attr("src", b.Source), attr("alt", b.Caption)))
	if b.Caption != "" {
		caption := element(atom.Figcaption)
		caption.AppendChild(textNode(b.Caption))
		fig.AppendChild(caption)
	}
	return fig
}

// appendSegments writes each segment as a span carrying its style classes
// and colour.
func appendSegments(parent *html.Node, segs []richtext.Segment) {
	for _, s := range segs {
		span := element(atom.Span)
		if classes := s.Classes(); len(classes) > 0 {
			span.Attr = append(span.Attr, attr("class", strings.Join(classes, " ")))
		}
		if s.Color != "" {
			span.Attr = append(span.Attr, attr("style", "color: "+s.Color))
		}
		if s.HasLink() {
			a := element(atom.A, attr("href", s.Link))
			a.AppendChild(textNode(s.Text))
			span.AppendChild(a)
		} else {
			span.AppendChild(textNode(s.Text))
		}
		parent.AppendChild(span)
	}
}

func headingAtom(level int) atom.Atom {
	switch level {
	case 1:
		return atom.H1
	case 2:
		return atom.H2
	default:
		return atom.H3
	}
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
