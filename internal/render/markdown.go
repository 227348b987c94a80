package render

import (
	"io"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/salmonumbrella/notion-cli/internal/dispatch"
	"github.com/salmonumbrella/notion-cli/internal/richtext"
	"github.com/salmonumbrella/notion-cli/internal/site"
)

// Markdown writes doc as Markdown. Colours and underline have no Markdown
// form and are dropped; collapsibles become <details> blocks.
func Markdown(w io.Writer, doc *site.Document) error {
	md := markdown.NewMarkdown(w)

	md.H1(inline(doc.Title))
	md.PlainText("")
	writeMarkdownBlocks(md, doc.Blocks)

	return md.Build()
}

func writeMarkdownBlocks(md *markdown.Markdown, blocks []dispatch.Instruction) {
	for i := 0; i < len(blocks); i++ {
		switch b := blocks[i].(type) {
		case dispatch.Paragraph:
			md.PlainText(inline(b.Text))
		case dispatch.Heading:
			switch b.Level {
			case 1:
				md.H1(inline(b.Text))
			case 2:
				md.H2(inline(b.Text))
			default:
				md.H3(inline(b.Text))
			}
		case dispatch.BulletedItem:
			var items []string
			for ; i < len(blocks); i++ {
				item, ok := blocks[i].(dispatch.BulletedItem)
				if !ok {
					break
				}
				items = append(items, inline(item.Text))
			}
			i--
			md.BulletList(items...)
		case dispatch.NumberedItem:
			var items []string
			for ; i < len(blocks); i++ {
				item, ok := blocks[i].(dispatch.NumberedItem)
				if !ok {
					break
				}
				items = append(items, inline(item.Text))
			}
			i--
			md.OrderedList(items...)
		case dispatch.ChecklistItem:
			var set []markdown.CheckBoxSet
			for ; i < len(blocks); i++ {
				item, ok := blocks[i].(dispatch.ChecklistItem)
				if !ok {
					break
				}
				set = append(set, markdown.CheckBoxSet{Checked: item.Checked, Text: inline(item.Text)})
			}
			i--
			md.CheckBox(set)
		case dispatch.Collapsible:
			md.Details(inline(b.Summary), collapsibleBody(b))
		case dispatch.SubPage:
			md.PlainText(escapeMarkdown(b.Title))
		case dispatch.Image:
			md.PlainText(markdown.Image(escapeMarkdown(b.Caption), b.Source))
			if b.Caption != "" {
				md.PlainText("")
				md.PlainText(markdown.Italic(escapeMarkdown(b.Caption)))
			}
		case dispatch.Fallback:
			md.PlainText(escapeMarkdown(b.Diagnostic))
		}
		md.PlainText("")
	}
}

func collapsibleBody(c dispatch.Collapsible) string {
	if c.Unresolved {
		return markdown.Italic(unresolvedNote)
	}
	var sb strings.Builder
	inner := markdown.NewMarkdown(&sb)
	writeMarkdownBlocks(inner, c.Children)
	return strings.TrimSpace(inner.String())
}

// mdEscaper backslash-escapes characters that would otherwise start block
// structure (headings, lists, quotes, tables) or inline markup.
var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`, ".", `\.`,
	"!", `\!`, "|", `\|`,
)

func escapeMarkdown(s string) string {
	return mdEscaper.Replace(s)
}

// inline renders segments with Markdown emphasis. Leading and trailing
// whitespace stays outside the markers, which CommonMark requires for the
// emphasis to parse. Whitespace-only runs are emitted as-is.
func inline(segs []richtext.Segment) string {
	var sb strings.Builder
	for _, s := range segs {
		core := strings.TrimSpace(s.Text)
		if core == "" {
			sb.WriteString(s.Text)
			continue
		}
		start := strings.Index(s.Text, core)
		lead, trail := s.Text[:start], s.Text[start+len(core):]

		text := escapeMarkdown(core)
		if s.Code {
			text = markdown.Code(core)
		}
		if s.Strikethrough {
			text = markdown.Strikethrough(text)
		}
		if s.Italic {
			text = markdown.Italic(text)
		}
		if s.Bold {
			text = markdown.Bold(text)
		}
		if s.HasLink() {
			text = markdown.Link(text, s.Link)
		}
		sb.WriteString(lead)
		sb.WriteString(text)
		sb.WriteString(trail)
	}
	return sb.String()
}
