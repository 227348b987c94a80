// Package render turns assembled documents into markup.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/salmonumbrella/notion-cli/internal/site"
)

// Format is an artifact format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// unresolvedNote is shown inside collapsibles whose children were not loaded.
const unresolvedNote = "(nested content not loaded)"

// ParseFormat validates a format name. "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected json, markdown, or html)", s)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatHTML:
		return ".html"
	default:
		return ".json"
	}
}

// Render writes doc in format f.
func Render(w io.Writer, f Format, doc *site.Document) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatMarkdown:
		return Markdown(w, doc)
	case FormatHTML:
		return HTML(w, doc)
	default:
		return fmt.Errorf("render: unsupported format %q", f)
	}
}
