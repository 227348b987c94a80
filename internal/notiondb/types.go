package notiondb

import (
	"encoding/json"
	"sort"
	"time"
)

// BlockType is the kind tag of a block. The set is open: any tag the
// service sends is kept as-is.
type BlockType string

const (
	BlockParagraph        BlockType = "paragraph"
	BlockHeading1         BlockType = "heading_1"
	BlockHeading2         BlockType = "heading_2"
	BlockHeading3         BlockType = "heading_3"
	BlockBulletedListItem BlockType = "bulleted_list_item"
	BlockNumberedListItem BlockType = "numbered_list_item"
	BlockToDo             BlockType = "to_do"
	BlockToggle           BlockType = "toggle"
	BlockChildPage        BlockType = "child_page"
	BlockImage            BlockType = "image"
	// BlockUnsupported is what the API reports for kinds it cannot represent.
	BlockUnsupported BlockType = "unsupported"
)

// Annotations are the style flags of a rich text run.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color,omitempty"`
}

// Link is a hyperlink target.
type Link struct {
	URL string `json:"url"`
}

// TextContent is the "text" member of a rich text run.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// RichText is one annotated run as returned by the API.
type RichText struct {
	Type        string       `json:"type,omitempty"`
	PlainText   string       `json:"plain_text,omitempty"`
	Href        string       `json:"href,omitempty"`
	Text        *TextContent `json:"text,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// Content returns the run's text, preferring text.content over plain_text.
func (r RichText) Content() string {
	if r.Text != nil && r.Text.Content != "" {
		return r.Text.Content
	}
	return r.PlainText
}

// LinkURL returns the run's link target, or "" if it has none.
func (r RichText) LinkURL() string {
	if r.Text != nil && r.Text.Link != nil && r.Text.Link.URL != "" {
		return r.Text.Link.URL
	}
	return r.Href
}

// FileRef points at a hosted or external media file.
type FileRef struct {
	Type       string     `json:"type"` // "external" or "file"
	URL        string     `json:"url"`
	ExpiryTime *time.Time `json:"expiry_time,omitempty"`
}

// BlockContent holds the decoded fields of a block's kind payload.
type BlockContent struct {
	RichText []RichText
	Checked  bool
	Title    string
	Caption  []RichText
	Media    *FileRef
	// Raw is the payload exactly as received, used to re-encode kinds this
	// package does not model.
	Raw json.RawMessage
}

// Block is one node of page content.
//
// Children is nil until resolution has been attempted. A resolved block with
// no children carries a non-nil empty slice.
type Block struct {
	Object         string
	ID             string
	Type           BlockType
	HasChildren    bool
	Archived       bool
	CreatedTime    time.Time
	LastEditedTime time.Time
	Content        BlockContent
	Children       []Block
}

// ChildrenResolved reports whether the children field is present.
func (b Block) ChildrenResolved() bool {
	return b.Children != nil
}

// WithChildren returns a copy of b carrying children. A nil argument is
// stored as an empty slice so the result always reads as resolved.
func (b Block) WithChildren(children []Block) Block {
	if children == nil {
		children = []Block{}
	}
	b.Children = children
	return b
}

type blockEnvelope struct {
	Object         string    `json:"object"`
	ID             string    `json:"id"`
	Type           BlockType `json:"type"`
	HasChildren    bool      `json:"has_children"`
	Archived       bool      `json:"archived"`
	CreatedTime    time.Time `json:"created_time"`
	LastEditedTime time.Time `json:"last_edited_time"`
}

type blockPayload struct {
	RichText []RichText      `json:"rich_text"`
	Text     []RichText      `json:"text"`
	Checked  bool            `json:"checked"`
	Title    string          `json:"title"`
	Caption  []RichText      `json:"caption"`
	Type     string          `json:"type"`
	External *FileRef        `json:"external"`
	File     *FileRef        `json:"file"`
	Children json.RawMessage `json:"children"`
}

// UnmarshalJSON decodes the envelope and the payload stored under the key
// named by the block type. Both "rich_text" (current API) and "text" (legacy
// API) payload keys are accepted.
func (b *Block) UnmarshalJSON(data []byte) error {
	var env blockEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}

	*b = Block{
		Object:         env.Object,
		ID:             env.ID,
		Type:           env.Type,
		HasChildren:    env.HasChildren,
		Archived:       env.Archived,
		CreatedTime:    env.CreatedTime,
		LastEditedTime: env.LastEditedTime,
	}

	raw, ok := members[string(env.Type)]
	if !ok || isNull(raw) {
		return nil
	}

	var p blockPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// Kinds with a non-object payload are kept raw.
		b.Content.Raw = raw
		return nil
	}

	b.Content = BlockContent{
		RichText: p.RichText,
		Checked:  p.Checked,
		Title:    p.Title,
		Caption:  p.Caption,
		Raw:      raw,
	}
	if b.Content.RichText == nil && p.Text != nil {
		b.Content.RichText = p.Text
	}
	switch {
	case p.External != nil:
		b.Content.Media = &FileRef{Type: "external", URL: p.External.URL}
	case p.File != nil:
		b.Content.Media = &FileRef{Type: "file", URL: p.File.URL, ExpiryTime: p.File.ExpiryTime}
	}

	if len(p.Children) > 0 && !isNull(p.Children) {
		children := make([]Block, 0)
		if err := json.Unmarshal(p.Children, &children); err != nil {
			return err
		}
		b.Children = children
	}
	return nil
}

// MarshalJSON encodes the block in the API's shape. Children are written
// inside the kind payload only when present.
func (b Block) MarshalJSON() ([]byte, error) {
	payload, err := b.payload()
	if err != nil {
		return nil, err
	}
	if b.Children != nil {
		children, err := json.Marshal(b.Children)
		if err != nil {
			return nil, err
		}
		payload["children"] = children
	} else {
		delete(payload, "children")
	}

	encodedPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	object := b.Object
	if object == "" {
		object = "block"
	}
	out := map[string]interface{}{
		"object":       object,
		"id":           b.ID,
		"type":         b.Type,
		"has_children": b.HasChildren,
		"archived":     b.Archived,
		string(b.Type): json.RawMessage(encodedPayload),
	}
	if !b.CreatedTime.IsZero() {
		out["created_time"] = b.CreatedTime
	}
	if !b.LastEditedTime.IsZero() {
		out["last_edited_time"] = b.LastEditedTime
	}
	return json.Marshal(out)
}

func (b Block) payload() (map[string]json.RawMessage, error) {
	payload := make(map[string]json.RawMessage)
	if len(b.Content.Raw) > 0 && !isNull(b.Content.Raw) {
		if err := json.Unmarshal(b.Content.Raw, &payload); err == nil {
			return payload, nil
		}
	}

	set := func(key string, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		payload[key] = data
		return nil
	}

	switch b.Type {
	case BlockChildPage:
		if err := set("title", b.Content.Title); err != nil {
			return nil, err
		}
	case BlockImage:
		if m := b.Content.Media; m != nil {
			if err := set("type", m.Type); err != nil {
				return nil, err
			}
			if err := set(m.Type, map[string]interface{}{"url": m.URL}); err != nil {
				return nil, err
			}
		}
		if b.Content.Caption != nil {
			if err := set("caption", b.Content.Caption); err != nil {
				return nil, err
			}
		}
	default:
		if b.Content.RichText != nil {
			if err := set("rich_text", b.Content.RichText); err != nil {
				return nil, err
			}
		}
		if b.Type == BlockToDo {
			if err := set("checked", b.Content.Checked); err != nil {
				return nil, err
			}
		}
	}
	return payload, nil
}

// Property is one typed page property. Only the title payload is decoded;
// every property keeps its raw form.
type Property struct {
	ID    string
	Type  string
	Title []RichText
	Raw   json.RawMessage
}

// UnmarshalJSON keeps the raw property alongside the decoded fields.
func (p *Property) UnmarshalJSON(data []byte) error {
	var decoded struct {
		ID    string     `json:"id"`
		Type  string     `json:"type"`
		Title []RichText `json:"title"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	p.ID = decoded.ID
	p.Type = decoded.Type
	p.Title = decoded.Title
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the raw property when available.
func (p Property) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	out := map[string]interface{}{
		"id":   p.ID,
		"type": p.Type,
	}
	if p.Type == "title" {
		title := p.Title
		if title == nil {
			title = []RichText{}
		}
		out["title"] = title
	}
	return json.Marshal(out)
}

// Page is the metadata of a page as returned by the API.
type Page struct {
	Object         string              `json:"object"`
	ID             string              `json:"id"`
	URL            string              `json:"url,omitempty"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Archived       bool                `json:"archived"`
	Properties     map[string]Property `json:"properties"`
}

// TitleProperty returns the page's title runs. The "Name" property is
// preferred; otherwise the first title-typed property in key order is used.
func (p Page) TitleProperty() []RichText {
	if prop, ok := p.Properties["Name"]; ok && prop.Type == "title" {
		return prop.Title
	}
	keys := make([]string, 0, len(p.Properties))
	for k := range p.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if prop := p.Properties[k]; prop.Type == "title" {
			return prop.Title
		}
	}
	return nil
}

// PlainTitle concatenates the title runs.
func (p Page) PlainTitle() string {
	var s string
	for _, r := range p.TitleProperty() {
		s += r.Content()
	}
	return s
}

// Summary reduces the page to the fields used for enumeration.
func (p Page) Summary() PageSummary {
	return PageSummary{
		ID:             p.ID,
		URL:            p.URL,
		Title:          p.PlainTitle(),
		LastEditedTime: p.LastEditedTime,
	}
}

// PageSummary is one row of a database query.
type PageSummary struct {
	ID             string    `json:"id"`
	URL            string    `json:"url,omitempty"`
	Title          string    `json:"title"`
	LastEditedTime time.Time `json:"last_edited_time"`
}

// List is the paginated list envelope used by the API.
type List[T any] struct {
	Object     string `json:"object"`
	Results    []T    `json:"results"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
