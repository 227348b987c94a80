package api

import "strings"

// NewClientFromCredentials creates a client for the given token. An empty
// token is an AuthenticationError so callers can report missing credentials
// before any request is attempted.
func NewClientFromCredentials(token string, opts ...ClientOption) (NotionAPI, error) {
	if strings.TrimSpace(token) == "" {
		return nil, AuthenticationError{Message: "no API token configured; run 'notion auth login' or set NOTION_TOKEN"}
	}
	return NewClient(token, opts...), nil
}
