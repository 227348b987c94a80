package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testPageID = "59833787-2cf9-4fdf-8782-e53db20768a5"

func TestClient_GetPage_InvalidIDMakesNoRequest(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	for _, id := range []string{"favicon.ico", "", "598337872cf94fdf8782e53db20768a5", "59833787-2cf9-1fdf-8782-e53db20768a5"} {
		_, err := client.GetPage(context.Background(), id)
		var invalid InvalidIdentifierError
		if !errors.As(err, &invalid) {
			t.Fatalf("GetPage(%q) error = %v, want InvalidIdentifierError", id, err)
		}
		if invalid.ID != id {
			t.Errorf("InvalidIdentifierError.ID = %q, want %q", invalid.ID, id)
		}
	}

	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestClient_GetPage(t *testing.T) {
	var gotPath, gotAuth, gotVersion string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Notion-Version")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"object": "page",
			"id": "` + testPageID + `",
			"url": "https://www.notion.so/Hello-598337872cf94fdf8782e53db20768a5",
			"last_edited_time": "2022-08-01T10:00:00.000Z",
			"properties": {
				"Name": {"id": "title", "type": "title", "title": [
					{"type": "text", "plain_text": "Hello", "text": {"content": "Hello"}}
				]}
			}
		}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	page, err := client.GetPage(context.Background(), testPageID)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}

	if gotPath != "/v1/pages/"+testPageID {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("unexpected Authorization header %q", gotAuth)
	}
	if gotVersion != DefaultNotionVersion {
		t.Errorf("unexpected Notion-Version header %q", gotVersion)
	}
	if page.ID != testPageID {
		t.Errorf("page.ID = %q", page.ID)
	}
	if page.PlainTitle() != "Hello" {
		t.Errorf("page.PlainTitle() = %q, want Hello", page.PlainTitle())
	}
}

func TestClient_GetPage_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"object":"error","status":404,"code":"object_not_found","message":"Could not find page."}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	_, err := client.GetPage(context.Background(), testPageID)
	var nf NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
	if !strings.Contains(nf.Message, "object_not_found") || !strings.Contains(nf.Message, "Could not find page.") {
		t.Errorf("unexpected message %q", nf.Message)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusUnauthorized, func(err error) bool { var e AuthenticationError; return errors.As(err, &e) }},
		{http.StatusForbidden, func(err error) bool { var e AuthenticationError; return errors.As(err, &e) }},
		{http.StatusBadRequest, func(err error) bool { var e ValidationError; return errors.As(err, &e) }},
		{http.StatusBadGateway, func(err error) bool { return strings.Contains(err.Error(), "status 502") }},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(`{"object":"error","status":0,"code":"x","message":"nope"}`))
		}))

		client := NewClient("test-token", WithBaseURL(server.URL))
		_, err := client.ListChildren(context.Background(), testPageID)
		server.Close()

		if err == nil || !tt.check(err) {
			t.Errorf("status %d: unexpected error %T: %v", tt.status, err, err)
		}
	}
}

func TestClient_ListChildren(t *testing.T) {
	var gotPath, gotPageSize string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPageSize = r.URL.Query().Get("page_size")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"object": "list",
			"results": [
				{"object":"block","id":"b1","type":"paragraph","has_children":false,
				 "paragraph":{"rich_text":[{"plain_text":"Hi","text":{"content":"Hi"}}]}},
				{"object":"block","id":"b2","type":"toggle","has_children":true,
				 "toggle":{"rich_text":[{"plain_text":"More","text":{"content":"More"}}]}}
			],
			"next_cursor": "abc",
			"has_more": true
		}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	blocks, err := client.ListChildren(context.Background(), testPageID)
	if err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}

	if gotPath != "/v1/blocks/"+testPageID+"/children" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotPageSize != "50" {
		t.Errorf("expected page_size=50, got %q", gotPageSize)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].ID != "b1" || blocks[1].ID != "b2" {
		t.Errorf("unexpected order: %s, %s", blocks[0].ID, blocks[1].ID)
	}
	if !blocks[1].HasChildren {
		t.Error("expected b2 to report children")
	}
	if blocks[1].ChildrenResolved() {
		t.Error("listing must not mark children as resolved")
	}
}

func TestClient_ListChildren_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"object":"list","results":[],"has_more":false}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	blocks, err := client.ListChildren(context.Background(), testPageID)
	if err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}
	if blocks == nil || len(blocks) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", blocks)
	}
}

func TestClient_QueryDatabase_ForwardsOptions(t *testing.T) {
	var receivedBody map[string]json.RawMessage

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&receivedBody)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"object":"list","results":[{"object":"page","id":"p1","properties":{}}],"has_more":true,"next_cursor":"c2"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	filter := json.RawMessage(`{"property":"Published","checkbox":{"equals":true}}`)
	pages, err := client.QueryDatabase(context.Background(), "db1", QueryOptions{Filter: filter, PageSize: 10})
	if err != nil {
		t.Fatalf("QueryDatabase failed: %v", err)
	}

	if len(pages) != 1 || pages[0].ID != "p1" {
		t.Fatalf("unexpected pages %#v", pages)
	}
	if string(receivedBody["filter"]) != string(filter) {
		t.Errorf("filter not forwarded verbatim: %s", receivedBody["filter"])
	}
	if string(receivedBody["page_size"]) != "10" {
		t.Errorf("unexpected page_size %s", receivedBody["page_size"])
	}
	if _, ok := receivedBody["sorts"]; ok {
		t.Error("unset sorts should be omitted")
	}
}

func TestClient_QueryDatabase_All(t *testing.T) {
	var mu sync.Mutex
	var cursors []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		cursor, _ := body["start_cursor"].(string)

		mu.Lock()
		cursors = append(cursors, cursor)
		mu.Unlock()

		w.WriteHeader(http.StatusOK)
		switch cursor {
		case "":
			w.Write([]byte(`{"results":[{"id":"p1","properties":{}}],"has_more":true,"next_cursor":"c2"}`))
		case "c2":
			w.Write([]byte(`{"results":[{"id":"p2","properties":{}}],"has_more":false,"next_cursor":null}`))
		default:
			t.Errorf("unexpected cursor %q", cursor)
		}
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	pages, err := client.QueryDatabase(context.Background(), "db1", QueryOptions{All: true})
	if err != nil {
		t.Fatalf("QueryDatabase failed: %v", err)
	}

	if len(pages) != 2 || pages[0].ID != "p1" || pages[1].ID != "p2" {
		t.Fatalf("unexpected pages %#v", pages)
	}
	if len(cursors) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(cursors))
	}
}

func TestClient_RetriesRateLimit(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"object":"error","status":429,"code":"rate_limited","message":"slow down"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL), WithInitialBackoff(time.Millisecond))

	if _, err := client.ListChildren(context.Background(), testPageID); err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected 2 calls, got %d", n)
	}
}

type recordedRequest struct {
	op  string
	err error
}

type captureRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (c *captureRecorder) ObserveRequest(op string, _ time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, recordedRequest{op: op, err: err})
}
func (c *captureRecorder) ObserveResolve(time.Duration) {}
func (c *captureRecorder) IncSubtreeFailure()           {}
func (c *captureRecorder) IncBuildOutcome(string)       {}

func TestClient_RecordsRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	rec := &captureRecorder{}
	client := NewClient("test-token", WithBaseURL(server.URL), WithRecorder(rec))

	_, _ = client.GetPage(context.Background(), testPageID)
	_, _ = client.GetPage(context.Background(), "bogus")

	if len(rec.requests) != 1 {
		t.Fatalf("expected 1 recorded request, got %d", len(rec.requests))
	}
	if rec.requests[0].op != OpGetPage || rec.requests[0].err == nil {
		t.Errorf("unexpected record %#v", rec.requests[0])
	}
}

func TestNewClientFromCredentials_EmptyToken(t *testing.T) {
	_, err := NewClientFromCredentials("  ")
	var authErr AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}

	client, err := NewClientFromCredentials("tok")
	if err != nil || client == nil {
		t.Fatalf("expected client, got %v", err)
	}
}
