package api

import "encoding/json"

// QueryOptions provides optional parameters for database queries.
type QueryOptions struct {
	// Filter is a raw filter object, forwarded verbatim
	Filter json.RawMessage
	// Sorts is a raw sorts array, forwarded verbatim
	Sorts json.RawMessage
	// PageSize limits each response page (0 = service default)
	PageSize int
	// StartCursor resumes a previous listing
	StartCursor string
	// All follows next_cursor until the listing is exhausted
	All bool
}

// ToBody converts QueryOptions to a request body. Unset options are omitted.
func (o QueryOptions) ToBody() map[string]interface{} {
	body := make(map[string]interface{})
	if len(o.Filter) > 0 {
		body["filter"] = o.Filter
	}
	if len(o.Sorts) > 0 {
		body["sorts"] = o.Sorts
	}
	if o.PageSize > 0 {
		body["page_size"] = o.PageSize
	}
	if o.StartCursor != "" {
		body["start_cursor"] = o.StartCursor
	}
	return body
}
