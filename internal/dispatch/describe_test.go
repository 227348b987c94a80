package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salmonumbrella/notion-cli/internal/notiondb"
	"github.com/salmonumbrella/notion-cli/internal/richtext"
)

func runs(s string) []notiondb.RichText {
	return []notiondb.RichText{{PlainText: s, Text: &notiondb.TextContent{Content: s}}}
}

func block(id string, kind notiondb.BlockType, s string) notiondb.Block {
	return notiondb.Block{ID: id, Type: kind, Content: notiondb.BlockContent{RichText: runs(s)}}
}

func TestDescribe_RecognizedKinds(t *testing.T) {
	text := []richtext.Segment{{Text: "x"}}

	tests := []struct {
		block notiondb.Block
		want  Instruction
	}{
		{block("1", notiondb.BlockParagraph, "x"), Paragraph{Header{"1", notiondb.BlockParagraph}, text}},
		{block("2", notiondb.BlockHeading1, "x"), Heading{Header{"2", notiondb.BlockHeading1}, 1, text}},
		{block("3", notiondb.BlockHeading2, "x"), Heading{Header{"3", notiondb.BlockHeading2}, 2, text}},
		{block("4", notiondb.BlockHeading3, "x"), Heading{Header{"4", notiondb.BlockHeading3}, 3, text}},
		{block("5", notiondb.BlockBulletedListItem, "x"), BulletedItem{Header{"5", notiondb.BlockBulletedListItem}, text}},
		{block("6", notiondb.BlockNumberedListItem, "x"), NumberedItem{Header{"6", notiondb.BlockNumberedListItem}, text}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.block))
	}
}

func TestDescribe_ChecklistItem(t *testing.T) {
	b := block("todo", notiondb.BlockToDo, "buy milk")
	b.Content.Checked = true

	got, ok := Describe(b).(ChecklistItem)
	require.True(t, ok)
	assert.True(t, got.Checked)
	assert.Equal(t, "buy milk", richtext.PlainText(got.Text))
}

func TestDescribe_Collapsible(t *testing.T) {
	toggle := block("t", notiondb.BlockToggle, "More")
	toggle.HasChildren = true
	toggle = toggle.WithChildren([]notiondb.Block{block("p", notiondb.BlockParagraph, "Nested")})

	got, ok := Describe(toggle).(Collapsible)
	require.True(t, ok)
	assert.False(t, got.Unresolved)
	assert.Equal(t, "More", richtext.PlainText(got.Summary))
	require.Len(t, got.Children, 1)

	child, ok := got.Children[0].(Paragraph)
	require.True(t, ok)
	assert.Equal(t, "Nested", richtext.PlainText(child.Text))
}

func TestDescribe_CollapsibleUnresolvedAndEmpty(t *testing.T) {
	unresolved := block("u", notiondb.BlockToggle, "deep")
	unresolved.HasChildren = true

	got := Describe(unresolved).(Collapsible)
	assert.True(t, got.Unresolved)
	assert.Nil(t, got.Children)

	empty := block("e", notiondb.BlockToggle, "empty").WithChildren(nil)
	got = Describe(empty).(Collapsible)
	assert.False(t, got.Unresolved)
	assert.NotNil(t, got.Children)
	assert.Empty(t, got.Children)
}

func TestDescribe_SubPage(t *testing.T) {
	b := notiondb.Block{ID: "c", Type: notiondb.BlockChildPage, Content: notiondb.BlockContent{Title: "Child"}}
	assert.Equal(t, SubPage{Header{"c", notiondb.BlockChildPage}, "Child"}, Describe(b))
}

func TestDescribe_Image(t *testing.T) {
	external := notiondb.Block{ID: "i1", Type: notiondb.BlockImage, Content: notiondb.BlockContent{
		Media:   &notiondb.FileRef{Type: "external", URL: "https://example.com/a.png"},
		Caption: []notiondb.RichText{{PlainText: "first"}, {PlainText: "second"}},
	}}
	hosted := notiondb.Block{ID: "i2", Type: notiondb.BlockImage, Content: notiondb.BlockContent{
		Media: &notiondb.FileRef{Type: "file", URL: "https://s3.example.com/b.png"},
	}}

	img := Describe(external).(Image)
	assert.Equal(t, "https://example.com/a.png", img.Source)
	assert.Equal(t, "first", img.Caption)

	img = Describe(hosted).(Image)
	assert.Equal(t, "https://s3.example.com/b.png", img.Source)
	assert.Empty(t, img.Caption)

	img = Describe(notiondb.Block{ID: "i3", Type: notiondb.BlockImage}).(Image)
	assert.Empty(t, img.Source)
}

func TestDescribe_Fallback(t *testing.T) {
	tests := map[notiondb.BlockType]string{
		"unsupported":  "❌ Unsupported block (unsupported by Notion API)",
		"synced_block": "❌ Unsupported block (synced_block)",
		"":             "❌ Unsupported block ()",
	}

	for kind, diag := range tests {
		assert.NotPanics(t, func() {
			got, ok := Describe(notiondb.Block{ID: "f", Type: kind}).(Fallback)
			require.True(t, ok)
			assert.Equal(t, diag, got.Diagnostic)
			assert.Equal(t, kind, got.Kind)
		})
	}
}

func TestDescribeAll(t *testing.T) {
	assert.NotNil(t, DescribeAll(nil))
	got := DescribeAll([]notiondb.Block{
		block("a", notiondb.BlockParagraph, "1"),
		{ID: "b", Type: "table"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "a", HeaderOf(got[0]).BlockID)
	assert.Equal(t, notiondb.BlockType("table"), HeaderOf(got[1]).Kind)
}

func TestUnresolvedIDs(t *testing.T) {
	inner := block("inner", notiondb.BlockToggle, "x")
	inner.HasChildren = true
	outer := block("outer", notiondb.BlockToggle, "y").WithChildren([]notiondb.Block{inner})
	unresolved := block("root-unresolved", notiondb.BlockToggle, "z")
	unresolved.HasChildren = true

	ids := UnresolvedIDs(DescribeAll([]notiondb.Block{outer, block("p", notiondb.BlockParagraph, "p"), unresolved}))
	assert.Equal(t, []string{"inner", "root-unresolved"}, ids)
}

func TestInstruction_JSON(t *testing.T) {
	data, err := json.Marshal(Describe(block("a", notiondb.BlockHeading2, "Title")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"block_id":"a","kind":"heading_2","level":2,"text":[{"text":"Title"}]}`, string(data))
}
