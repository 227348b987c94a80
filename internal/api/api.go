package api

import (
	"context"

	"github.com/salmonumbrella/notion-cli/internal/notiondb"
)

// NotionAPI defines the read operations used against the Notion content
// service. Client implements it; tests substitute fakes.
type NotionAPI interface {
	// QueryDatabase lists the pages of a database. Filter and sort
	// arguments are forwarded verbatim.
	QueryDatabase(ctx context.Context, databaseID string, opts QueryOptions) ([]notiondb.PageSummary, error)

	// GetPage retrieves page metadata. Malformed identifiers fail with
	// InvalidIdentifierError before any request is made.
	GetPage(ctx context.Context, pageID string) (*notiondb.Page, error)

	// ListChildren returns the immediate children of a block or page, in
	// order. Only the first page of results is returned.
	ListChildren(ctx context.Context, blockID string) ([]notiondb.Block, error)
}
