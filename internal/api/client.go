package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/salmonumbrella/notion-cli/internal/metrics"
	"github.com/salmonumbrella/notion-cli/internal/notiondb"
)

const (
	// DefaultBaseURL is the base URL for the Notion API
	DefaultBaseURL = "https://api.notion.com"
	// DefaultNotionVersion is the API version sent in the Notion-Version header
	DefaultNotionVersion = "2022-06-28"
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second
	// MaxRetries for rate limit errors
	MaxRetries = 3
	// InitialBackoff for rate limit retries
	InitialBackoff = time.Second
	// ChildrenPageSize is the page size used when listing block children.
	// Only the first page is fetched.
	ChildrenPageSize = 50
)

// Operation names used for metrics and logs.
const (
	OpQueryDatabase = "query_database"
	OpGetPage       = "get_page"
	OpListChildren  = "list_children"
)

// Error types for specific API errors
type (
	// AuthenticationError indicates an authentication failure
	AuthenticationError struct{ Message string }
	// RateLimitError indicates rate limit exceeded
	RateLimitError struct {
		Message    string
		RetryAfter time.Duration
	}
	// NotFoundError indicates a resource was not found
	NotFoundError struct{ Message string }
	// ValidationError indicates invalid input
	ValidationError struct{ Message string }
	// InvalidIdentifierError indicates an identifier that is not a canonical
	// page token. It is returned before any request is made.
	InvalidIdentifierError struct{ ID string }
)

func (e AuthenticationError) Error() string { return e.Message }
func (e RateLimitError) Error() string      { return e.Message }
func (e NotFoundError) Error() string       { return e.Message }
func (e ValidationError) Error() string     { return e.Message }
func (e InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid page identifier: %q", e.ID)
}

// errorBody is the error object returned by the API.
type errorBody struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client represents a Notion API client. It is safe for concurrent use.
type Client struct {
	baseURL       string
	apiToken      string
	notionVersion string
	backoff       time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
	recorder      metrics.Recorder
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL for the client
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout sets a custom timeout for the HTTP client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithNotionVersion overrides the Notion-Version header
func WithNotionVersion(version string) ClientOption {
	return func(c *Client) {
		if version != "" {
			c.notionVersion = version
		}
	}
}

// WithInitialBackoff sets the first rate limit backoff; it doubles per retry
func WithInitialBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		c.backoff = d
	}
}

// WithLogger sets the logger used for request debugging
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r metrics.Recorder) ClientOption {
	return func(c *Client) {
		c.recorder = metrics.OrNoop(r)
	}
}

// NewClient creates a new Notion API client
func NewClient(apiToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		apiToken:      apiToken,
		notionVersion: DefaultNotionVersion,
		backoff:       InitialBackoff,
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		logger:        slog.Default(),
		recorder:      metrics.NoopRecorder{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// call makes a single API call
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Notion-Version", c.notionVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("notion request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFor(resp, respBody)
	}

	return respBody, nil
}

func (c *Client) errorFor(resp *http.Response, respBody []byte) error {
	message := strings.TrimSpace(string(respBody))
	var eb errorBody
	if err := json.Unmarshal(respBody, &eb); err == nil && eb.Message != "" {
		message = eb.Message
		if eb.Code != "" {
			message = eb.Code + ": " + eb.Message
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return AuthenticationError{Message: "invalid API token: " + message}
	case http.StatusForbidden:
		return AuthenticationError{Message: "access denied: " + message}
	case http.StatusNotFound:
		return NotFoundError{Message: "not found: " + message}
	case http.StatusTooManyRequests:
		return RateLimitError{
			Message:    "rate limit exceeded: " + message,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case http.StatusBadRequest:
		return ValidationError{Message: "invalid request: " + message}
	case http.StatusInternalServerError:
		return fmt.Errorf("server error: %s", message)
	default:
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, message)
	}
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// callWithRetry calls the API with retry logic for rate limits
func (c *Client) callWithRetry(ctx context.Context, op, method, path string, query url.Values, body interface{}) ([]byte, error) {
	start := time.Now()
	resp, err := c.retry(ctx, method, path, query, body)
	c.recorder.ObserveRequest(op, time.Since(start), err)
	return resp, err
}

func (c *Client) retry(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	backoff := c.backoff

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		resp, err := c.call(ctx, method, path, query, body)
		if err == nil {
			return resp, nil
		}

		// Only retry on rate limit errors
		rateErr, ok := err.(RateLimitError)
		if !ok {
			return nil, err
		}

		if attempt < MaxRetries {
			wait := backoff
			if rateErr.RetryAfter > wait {
				wait = rateErr.RetryAfter
			}
			c.logger.Debug("rate limited, backing off", "path", path, "attempt", attempt+1, "wait", wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			backoff *= 2
		}
	}

	return nil, RateLimitError{Message: "rate limit exceeded after retries"}
}

// GetPage retrieves page metadata. Identifiers that are not canonical page
// tokens fail with InvalidIdentifierError without contacting the API.
func (c *Client) GetPage(ctx context.Context, pageID string) (*notiondb.Page, error) {
	if !ValidPageID(pageID) {
		return nil, InvalidIdentifierError{ID: pageID}
	}

	resp, err := c.callWithRetry(ctx, OpGetPage, http.MethodGet, "/v1/pages/"+url.PathEscape(pageID), nil, nil)
	if err != nil {
		return nil, err
	}

	return notiondb.ParsePage(resp)
}

// ListChildren returns the first page (up to ChildrenPageSize) of a block's
// children, in order.
func (c *Client) ListChildren(ctx context.Context, blockID string) ([]notiondb.Block, error) {
	if strings.TrimSpace(blockID) == "" {
		return nil, ValidationError{Message: "block id is required"}
	}

	query := url.Values{}
	query.Set("page_size", strconv.Itoa(ChildrenPageSize))

	resp, err := c.callWithRetry(ctx, OpListChildren, http.MethodGet, "/v1/blocks/"+url.PathEscape(blockID)+"/children", query, nil)
	if err != nil {
		return nil, err
	}

	list, err := notiondb.ParseBlockList(resp)
	if err != nil {
		return nil, err
	}
	return list.Results, nil
}

// QueryDatabase lists the pages of a database. The options are forwarded
// verbatim; with opts.All set, next_cursor pagination is followed.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, opts QueryOptions) ([]notiondb.PageSummary, error) {
	if strings.TrimSpace(databaseID) == "" {
		return nil, ValidationError{Message: "database id is required"}
	}

	path := "/v1/databases/" + url.PathEscape(databaseID) + "/query"
	summaries := make([]notiondb.PageSummary, 0)
	cursor := opts.StartCursor

	for {
		body := opts.ToBody()
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		resp, err := c.callWithRetry(ctx, OpQueryDatabase, http.MethodPost, path, nil, body)
		if err != nil {
			return nil, err
		}

		list, err := notiondb.ParsePageList(resp)
		if err != nil {
			return nil, err
		}
		for _, page := range list.Results {
			summaries = append(summaries, page.Summary())
		}

		if !opts.All || !list.HasMore || list.NextCursor == "" {
			return summaries, nil
		}
		cursor = list.NextCursor
	}
}

// Ensure Client implements NotionAPI at compile time
var _ NotionAPI = (*Client)(nil)
