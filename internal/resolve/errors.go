package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/salmonumbrella/notion-cli/internal/api"
)

// ErrNotFound matches every *NotFoundError via errors.Is.
var ErrNotFound = errors.New("page not found")

// Reasons a page is reported as not found.
const (
	// ReasonInvalidID means the identifier failed validation and no request
	// was made.
	ReasonInvalidID = "invalid_id"
	// ReasonMissing means the service reported the page does not exist.
	ReasonMissing = "missing"
	// ReasonServiceError means the metadata fetch failed for another reason,
	// such as an outage or a rejected token.
	ReasonServiceError = "service_error"
)

// NotFoundError is returned when a page's metadata cannot be obtained.
type NotFoundError struct {
	PageID string
	Reason string
	Cause  error
}

func (e *NotFoundError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("page %q not found (%s)", e.PageID, e.Reason)
	}
	return fmt.Sprintf("page %q not found (%s): %v", e.PageID, e.Reason, e.Cause)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) Unwrap() error { return e.Cause }

// SubtreeError records a container whose children could not be fetched.
// The container itself stays in the tree with children unresolved.
type SubtreeError struct {
	BlockID string
	Err     error
}

func (e *SubtreeError) Error() string {
	return fmt.Sprintf("fetch children of block %s: %v", e.BlockID, e.Err)
}

func (e *SubtreeError) Unwrap() error { return e.Err }

// notFound classifies a metadata fetch failure.
func notFound(pageID string, err error) *NotFoundError {
	reason := ReasonServiceError

	var invalid api.InvalidIdentifierError
	var missing api.NotFoundError
	switch {
	case errors.As(err, &invalid):
		reason = ReasonInvalidID
	case errors.As(err, &missing):
		reason = ReasonMissing
	}

	return &NotFoundError{PageID: pageID, Reason: reason, Cause: err}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
