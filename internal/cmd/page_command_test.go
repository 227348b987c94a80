package cmd

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/salmonumbrella/notion-cli/internal/notiondb"
)

func decodeEnvelope(t *testing.T, stderr string) errorDetail {
	t.Helper()
	for _, line := range strings.Split(stderr, "\n") {
		if !strings.HasPrefix(line, `{"error"`) {
			continue
		}
		var env errorEnvelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			t.Fatalf("parse envelope: %v", err)
		}
		return env.Error
	}
	t.Fatalf("no error envelope in stderr: %q", stderr)
	return errorDetail{}
}

func TestPageGet_JSONDocument(t *testing.T) {
	e := newCLIEnv(t, helloClient())

	out, _, err := e.run(t, "--token", testToken, "-o", "json", "page", "get", pageA)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if e.lastToken() != testToken {
		t.Fatalf("expected flag token, got %q", e.lastToken())
	}

	var doc struct {
		ID        string `json:"id"`
		TitleText string `json:"title_text"`
		Blocks    []struct {
			Kind     string            `json:"kind"`
			Children []json.RawMessage `json:"children"`
		} `json:"blocks"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("parse output: %v\n%s", err, out)
	}
	if doc.ID != pageA || doc.TitleText != "Hello" {
		t.Fatalf("unexpected document header: %+v", doc)
	}
	if len(doc.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(doc.Blocks))
	}
	if doc.Blocks[1].Kind != "toggle" || len(doc.Blocks[1].Children) != 1 {
		t.Fatalf("toggle should carry its nested paragraph: %+v", doc.Blocks[1])
	}
}

func TestPageGet_TextSummary(t *testing.T) {
	e := newCLIEnv(t, helloClient())

	out, _, err := e.run(t, "--token", testToken, "-o", "text", "page", "get", pageA)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"Title: Hello", "ID: " + pageA, "Blocks: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestPageGet_RenderMarkdown(t *testing.T) {
	e := newCLIEnv(t, helloClient())

	out, _, err := e.run(t, "--token", testToken, "page", "get", pageA, "--render", "markdown")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out, "# Hello") {
		t.Fatalf("expected title heading first:\n%s", out)
	}
	if !strings.Contains(out, "Hi") || !strings.Contains(out, "Nested") {
		t.Fatalf("expected page content:\n%s", out)
	}
}

func TestPageGet_RenderHTML(t *testing.T) {
	e := newCLIEnv(t, helloClient())

	out, _, err := e.run(t, "--token", testToken, "page", "get", pageA, "--render", "html")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "<details>") || !strings.Contains(out, "<summary>") {
		t.Fatalf("expected toggle as details:\n%s", out)
	}
}

func TestPageGet_InvalidRender(t *testing.T) {
	e := newCLIEnv(t, helloClient())

	_, _, err := e.run(t, "--token", testToken, "page", "get", pageA, "--render", "pdf")
	if err == nil || !strings.Contains(err.Error(), "invalid --render") {
		t.Fatalf("expected render error, got %v", err)
	}
	if e.client.callCount() != 0 {
		t.Fatalf("expected no API calls, got %d", e.client.callCount())
	}
}

func TestPageGet_NotFoundEnvelope(t *testing.T) {
	e := newCLIEnv(t, helloClient())

	_, stderr, err := e.run(t, "--token", testToken, "-o", "json", "page", "get", pageB)
	if err == nil {
		t.Fatal("expected error")
	}
	got := decodeEnvelope(t, stderr)
	if got.Type != "not_found" || got.Reason != "missing" || got.PageID != pageB {
		t.Fatalf("unexpected envelope: %+v", got)
	}
}

func TestPageGet_InvalidIDMakesNoCalls(t *testing.T) {
	e := newCLIEnv(t, helloClient())

	_, stderr, err := e.run(t, "--token", testToken, "-o", "json", "page", "get", "not-a-uuid")
	if err == nil {
		t.Fatal("expected error")
	}
	if n := e.client.callCount(); n != 0 {
		t.Fatalf("expected no API calls, got %d", n)
	}
	if got := decodeEnvelope(t, stderr); got.Reason != "invalid_id" {
		t.Fatalf("expected invalid_id, got %+v", got)
	}
}

func TestPageGet_PartialStillPrints(t *testing.T) {
	c := helloClient()
	c.ListChildrenFunc = func(id string) ([]notiondb.Block, error) {
		if id == "t1" {
			return nil, errors.New("boom")
		}
		return []notiondb.Block{paragraphBlock("p1", "Hi"), toggleBlock("t1", "More")}, nil
	}
	e := newCLIEnv(t, c)

	out, stderr, err := e.run(t, "--token", testToken, "-o", "json", "page", "get", pageA)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var doc struct {
		Failed []string `json:"failed"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(doc.Failed) != 1 || doc.Failed[0] != "t1" {
		t.Fatalf("expected t1 to be reported as failed, got %v", doc.Failed)
	}
	if !strings.Contains(stderr, "level=WARN") {
		t.Fatalf("expected a warning on stderr, got %q", stderr)
	}
}

func TestPageGet_MissingToken(t *testing.T) {
	e := newCLIEnv(t, helloClient())

	_, stderr, err := e.run(t, "-o", "json", "page", "get", pageA)
	if err == nil {
		t.Fatal("expected error without a token")
	}
	if got := decodeEnvelope(t, stderr); got.Type != "auth" {
		t.Fatalf("expected auth error, got %+v", got)
	}
}

func TestPageBlocks_TextTree(t *testing.T) {
	e := newCLIEnv(t, helloClient())

	out, _, err := e.run(t, "--token", testToken, "-o", "text", "page", "blocks", pageA)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := "- [paragraph] Hi\n- [toggle] More\n  - [paragraph] Nested\n"
	if out != want {
		t.Fatalf("unexpected tree:\n%s\nwant:\n%s", out, want)
	}
}

func TestPageBlocks_JSON(t *testing.T) {
	e := newCLIEnv(t, helloClient())

	out, _, err := e.run(t, "--token", testToken, "-o", "json", "page", "blocks", pageA)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var blocks []notiondb.Block
	if err := json.Unmarshal([]byte(out), &blocks); err != nil {
		t.Fatalf("parse output: %v\n%s", err, out)
	}
	if len(blocks) != 2 || len(blocks[1].Children) != 1 {
		t.Fatalf("unexpected blocks: %+v", blocks)
	}
}

func TestPageBlocks_Table(t *testing.T) {
	e := newCLIEnv(t, helloClient())

	out, _, err := e.run(t, "--token", testToken, "-o", "table", "page", "blocks", pageA)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "ID") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}
