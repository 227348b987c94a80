package cmd

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/salmonumbrella/notion-cli/internal/api"
	"github.com/salmonumbrella/notion-cli/internal/notiondb"
	"github.com/salmonumbrella/notion-cli/internal/secrets"
)

const (
	pageA     = "59833787-2cf9-4fdf-8782-e53db20768a5"
	pageB     = "0f2e8a4c-6b1d-4c3e-9a7f-2d5b8e1c4a60"
	pageC     = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	testDBID  = "d9824bdc-8445-4327-be8b-5b47500af6ce"
	testToken = "secret_abcdefghijklmnop"
)

type fakeClient struct {
	QueryDatabaseFunc func(string, api.QueryOptions) ([]notiondb.PageSummary, error)
	GetPageFunc       func(string) (*notiondb.Page, error)
	ListChildrenFunc  func(string) ([]notiondb.Block, error)

	mu    sync.Mutex
	calls []string
}

var _ api.NotionAPI = (*fakeClient)(nil)

func (f *fakeClient) record(op, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+":"+id)
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeClient) QueryDatabase(_ context.Context, id string, opts api.QueryOptions) ([]notiondb.PageSummary, error) {
	f.record("query", id)
	if f.QueryDatabaseFunc != nil {
		return f.QueryDatabaseFunc(id, opts)
	}
	return []notiondb.PageSummary{}, nil
}

func (f *fakeClient) GetPage(_ context.Context, id string) (*notiondb.Page, error) {
	f.record("page", id)
	if f.GetPageFunc != nil {
		return f.GetPageFunc(id)
	}
	return nil, api.NotFoundError{Message: "not found: object_not_found"}
}

func (f *fakeClient) ListChildren(_ context.Context, id string) ([]notiondb.Block, error) {
	f.record("children", id)
	if f.ListChildrenFunc != nil {
		return f.ListChildrenFunc(id)
	}
	return []notiondb.Block{}, nil
}

func richText(s string) []notiondb.RichText {
	return []notiondb.RichText{{Type: "text", PlainText: s, Text: &notiondb.TextContent{Content: s}}}
}

func paragraphBlock(id, s string) notiondb.Block {
	return notiondb.Block{Object: "block", ID: id, Type: notiondb.BlockParagraph, Content: notiondb.BlockContent{RichText: richText(s)}}
}

func toggleBlock(id, s string) notiondb.Block {
	return notiondb.Block{Object: "block", ID: id, Type: notiondb.BlockToggle, HasChildren: true, Content: notiondb.BlockContent{RichText: richText(s)}}
}

func testPage(id, title string) *notiondb.Page {
	return &notiondb.Page{
		Object: "page",
		ID:     id,
		URL:    "https://www.notion.so/" + id,
		Properties: map[string]notiondb.Property{
			"Name": {ID: "title", Type: "title", Title: richText(title)},
		},
	}
}

// helloClient serves page A: a paragraph and a toggle holding one paragraph.
func helloClient() *fakeClient {
	return &fakeClient{
		GetPageFunc: func(id string) (*notiondb.Page, error) {
			if id == pageA {
				return testPage(pageA, "Hello"), nil
			}
			return nil, api.NotFoundError{Message: "not found: object_not_found"}
		},
		ListChildrenFunc: func(id string) ([]notiondb.Block, error) {
			switch id {
			case pageA:
				return []notiondb.Block{paragraphBlock("p1", "Hi"), toggleBlock("t1", "More")}, nil
			case "t1":
				return []notiondb.Block{paragraphBlock("p2", "Nested")}, nil
			}
			return []notiondb.Block{}, nil
		},
	}
}

// fakeStore is an in-memory secrets.Store.
type fakeStore struct {
	tokens map[string]secrets.Token
	def    string
}

var _ secrets.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{tokens: map[string]secrets.Token{}}
}

func (s *fakeStore) Keys() ([]string, error) {
	keys := make([]string, 0, len(s.tokens))
	for k := range s.tokens {
		keys = append(keys, "token:"+k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *fakeStore) SetToken(profile string, tok secrets.Token) error {
	s.tokens[profile] = tok
	return nil
}

func (s *fakeStore) GetToken(profile string) (secrets.Token, error) {
	tok, ok := s.tokens[profile]
	if !ok {
		return secrets.Token{}, fmt.Errorf("%w for profile %q", secrets.ErrTokenNotFound, profile)
	}
	return tok, nil
}

func (s *fakeStore) DeleteToken(profile string) error {
	if _, ok := s.tokens[profile]; !ok {
		return fmt.Errorf("%w for profile %q", secrets.ErrTokenNotFound, profile)
	}
	delete(s.tokens, profile)
	return nil
}

func (s *fakeStore) ListTokens() ([]secrets.Token, error) {
	out := make([]secrets.Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeStore) GetDefaultAccount() (string, error) { return s.def, nil }

func (s *fakeStore) SetDefaultAccount(profile string) error {
	s.def = profile
	return nil
}
