package resolve

import (
	"context"
	"sync"

	"github.com/salmonumbrella/notion-cli/internal/api"
	"github.com/salmonumbrella/notion-cli/internal/notiondb"
)

// fakeAPI serves canned pages and child lists and records every call.
type fakeAPI struct {
	mu sync.Mutex

	pages       map[string]*notiondb.Page
	pageErr     error
	children    map[string][]notiondb.Block
	childrenErr map[string]error
	// wait, when set for an ID, blocks ListChildren until the channel closes.
	wait map[string]chan struct{}
	// done, when set for an ID, is closed after ListChildren returns for it.
	done map[string]chan struct{}

	getPageCalls  []string
	childrenCalls []string
}

var _ api.NotionAPI = (*fakeAPI)(nil)

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		pages:       map[string]*notiondb.Page{},
		children:    map[string][]notiondb.Block{},
		childrenErr: map[string]error{},
		wait:        map[string]chan struct{}{},
		done:        map[string]chan struct{}{},
	}
}

func (f *fakeAPI) QueryDatabase(context.Context, string, api.QueryOptions) ([]notiondb.PageSummary, error) {
	return nil, nil
}

func (f *fakeAPI) GetPage(_ context.Context, id string) (*notiondb.Page, error) {
	f.mu.Lock()
	f.getPageCalls = append(f.getPageCalls, id)
	f.mu.Unlock()

	if !api.ValidPageID(id) {
		return nil, api.InvalidIdentifierError{ID: id}
	}
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	page, ok := f.pages[id]
	if !ok {
		return nil, api.NotFoundError{Message: "not found: object_not_found"}
	}
	return page, nil
}

func (f *fakeAPI) ListChildren(ctx context.Context, id string) ([]notiondb.Block, error) {
	f.mu.Lock()
	f.childrenCalls = append(f.childrenCalls, id)
	wait := f.wait[id]
	done := f.done[id]
	f.mu.Unlock()

	if done != nil {
		defer close(done)
	}
	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := f.childrenErr[id]; err != nil {
		return nil, err
	}
	children, ok := f.children[id]
	if !ok {
		return []notiondb.Block{}, nil
	}
	// Hand out a copy so callers cannot alias the fixture.
	return append([]notiondb.Block{}, children...), nil
}

func (f *fakeAPI) childrenCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.childrenCalls)
}

func text(s string) []notiondb.RichText {
	return []notiondb.RichText{{Type: "text", PlainText: s, Text: &notiondb.TextContent{Content: s}}}
}

func paragraph(id, s string) notiondb.Block {
	return notiondb.Block{Object: "block", ID: id, Type: notiondb.BlockParagraph, Content: notiondb.BlockContent{RichText: text(s)}}
}

func toggle(id, s string) notiondb.Block {
	return notiondb.Block{Object: "block", ID: id, Type: notiondb.BlockToggle, HasChildren: true, Content: notiondb.BlockContent{RichText: text(s)}}
}

func page(id, title string) *notiondb.Page {
	return &notiondb.Page{
		Object: "page",
		ID:     id,
		Properties: map[string]notiondb.Property{
			"Name": {ID: "title", Type: "title", Title: text(title)},
		},
	}
}
