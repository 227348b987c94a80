package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/notion-cli/internal/notiondb"
	"github.com/salmonumbrella/notion-cli/internal/output"
	"github.com/salmonumbrella/notion-cli/internal/render"
	"github.com/salmonumbrella/notion-cli/internal/richtext"
	"github.com/salmonumbrella/notion-cli/internal/site"
)

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Inspect a single page",
	Long: `Fetch a page and its content blocks.

Container blocks (toggles and the like) are expanded one level deep, the
same way the page would be built.

Examples:
  notion page get 59833787-2cf9-4fdf-8782-e53db20768a5
  notion page get <id> --render markdown
  notion page blocks <id> -o json`,
}

var pageGetCmd = &cobra.Command{
	Use:   "get <page-id>",
	Short: "Assemble a page and print it",
	Long: `Assemble a page and print it.

--render selects what is printed:
  summary   title, timestamps and block counts (default)
  markdown  the page rendered as Markdown
  html      the page rendered as a standalone HTML document
  raw       the assembled document as JSON

With --output json|yaml|ndjson and the summary renderer, the full
document is printed in that format.`,
	Args: cobra.ExactArgs(1),
	RunE: runPageGet,
}

var pageBlocksCmd = &cobra.Command{
	Use:   "blocks <page-id>",
	Short: "Print the resolved block tree of a page",
	Args:  cobra.ExactArgs(1),
	RunE:  runPageBlocks,
}

var pageRender string

func init() {
	pageGetCmd.Flags().StringVar(&pageRender, "render", "summary", "What to print (summary|markdown|html|raw)")

	pageCmd.AddCommand(pageGetCmd)
	pageCmd.AddCommand(pageBlocksCmd)
	rootCmd.AddCommand(pageCmd)
}

func runPageGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mode := strings.ToLower(strings.TrimSpace(pageRender))
	switch mode {
	case "summary", "markdown", "md", "html", "raw":
	default:
		return fmt.Errorf("invalid --render %q (expected summary|markdown|html|raw)", pageRender)
	}

	doc, err := newAssembler().Assemble(ctx, args[0])
	if err != nil {
		return err
	}
	if doc.Partial() {
		logger.Warn("some nested content could not be loaded", "page_id", doc.ID, "failed", len(doc.Failed))
	}

	out := stdoutFromContext(ctx)
	switch mode {
	case "markdown", "md":
		return render.Render(out, render.FormatMarkdown, doc)
	case "html":
		return render.Render(out, render.FormatHTML, doc)
	case "raw":
		return render.Render(out, render.FormatJSON, doc)
	}

	return printData(ctx, doc, func() error {
		return printPageSummary(out, doc)
	})
}

func printPageSummary(w io.Writer, doc *site.Document) error {
	title := doc.TitleText
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(w, "Title: %s\n", title)
	fmt.Fprintf(w, "ID: %s\n", doc.ID)
	if doc.URL != "" {
		fmt.Fprintf(w, "URL: %s\n", doc.URL)
	}
	if !doc.LastEdited.IsZero() {
		fmt.Fprintf(w, "Last edited: %s\n", doc.LastEdited.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Blocks: %d\n", len(doc.Blocks))
	if len(doc.Unresolved) > 0 {
		fmt.Fprintf(w, "Unresolved: %s\n", strings.Join(doc.Unresolved, ", "))
	}
	if len(doc.Failed) > 0 {
		fmt.Fprintf(w, "Failed: %s\n", strings.Join(doc.Failed, ", "))
	}
	return nil
}

// blockRow is one block of a flattened tree.
type blockRow struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Depth       int    `json:"depth"`
	HasChildren bool   `json:"has_children"`
	Text        string `json:"text"`
}

type blockRows []blockRow

func (rows blockRows) Table() output.Table {
	t := output.Table{Headers: []string{"ID", "TYPE", "DEPTH", "CHILDREN", "TEXT"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.ID, r.Type, fmt.Sprint(r.Depth), fmt.Sprint(r.HasChildren), r.Text})
	}
	return t
}

func flattenBlocks(blocks []notiondb.Block, depth int, rows blockRows) blockRows {
	for _, b := range blocks {
		text := richtext.PlainText(richtext.Normalize(b.Content.RichText))
		if b.Type == notiondb.BlockChildPage {
			text = b.Content.Title
		}
		rows = append(rows, blockRow{
			ID:          b.ID,
			Type:        string(b.Type),
			Depth:       depth,
			HasChildren: b.HasChildren,
			Text:        text,
		})
		rows = flattenBlocks(b.Children, depth+1, rows)
	}
	return rows
}

func runPageBlocks(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	res, err := newResolver().Resolve(ctx, args[0])
	if err != nil {
		return err
	}
	for _, f := range res.Failures {
		logger.Warn("children not loaded", "block_id", f.BlockID, "error", f.Err)
	}

	switch output.FormatFromContext(ctx) {
	case output.FormatTable:
		return printStructured(ctx, flattenBlocks(res.Blocks, 0, nil))
	case output.FormatText:
		out := stdoutFromContext(ctx)
		for _, r := range flattenBlocks(res.Blocks, 0, nil) {
			fmt.Fprintf(out, "%s- [%s] %s\n", strings.Repeat("  ", r.Depth), r.Type, r.Text)
		}
		return nil
	default:
		return printStructured(ctx, res.Blocks)
	}
}
