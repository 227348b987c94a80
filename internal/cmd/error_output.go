package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/salmonumbrella/notion-cli/internal/api"
	"github.com/salmonumbrella/notion-cli/internal/ledger"
	"github.com/salmonumbrella/notion-cli/internal/output"
	"github.com/salmonumbrella/notion-cli/internal/resolve"
)

func validateErrorFormat(format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "auto", "text", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("invalid --error-format %q (expected auto|text|json|yaml)", format)
	}
}

func effectiveErrorFormat(ctx context.Context) string {
	format := strings.ToLower(strings.TrimSpace(ErrorFormatFromContext(ctx)))
	if format == "" || format == "auto" {
		if ctx == nil {
			return "text"
		}
		switch output.FormatFromContext(ctx) {
		case output.FormatJSON, output.FormatNDJSON:
			return "json"
		case output.FormatYAML:
			return "yaml"
		default:
			return "text"
		}
	}
	return format
}

func printCommandError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	switch effectiveErrorFormat(ctx) {
	case "json":
		enc := json.NewEncoder(stderrFromContext(ctx))
		enc.SetEscapeHTML(false)
		_ = enc.Encode(buildErrorEnvelope(err))
		return
	case "yaml":
		enc := yaml.NewEncoder(stderrFromContext(ctx))
		enc.SetIndent(2)
		_ = enc.Encode(buildErrorEnvelope(err))
		_ = enc.Close()
		return
	}

	_, _ = fmt.Fprintln(stderrFromContext(ctx), "Error:", err)
}

// errorDetail is the "error" member of the structured error envelope.
type errorDetail struct {
	Message  string `json:"message" yaml:"message"`
	Type     string `json:"type" yaml:"type"`
	Category string `json:"category" yaml:"category"`
	Reason   string `json:"reason,omitempty" yaml:"reason,omitempty"`
	PageID   string `json:"page_id,omitempty" yaml:"page_id,omitempty"`
	BlockID  string `json:"block_id,omitempty" yaml:"block_id,omitempty"`
	// RetryAfter is in seconds.
	RetryAfter int `json:"retry_after,omitempty" yaml:"retry_after,omitempty"`
}

type errorEnvelope struct {
	Error errorDetail `json:"error" yaml:"error"`
}

// buildErrorEnvelope classifies err. Page-level classifications win over the
// transport error they wrap.
func buildErrorEnvelope(err error) errorEnvelope {
	d := errorDetail{Message: err.Error(), Type: "error", Category: "system"}

	var (
		authErr     api.AuthenticationError
		validErr    api.ValidationError
		invalidErr  api.InvalidIdentifierError
		apiNotFound api.NotFoundError
		rateErr     api.RateLimitError
		pageErr     *resolve.NotFoundError
		subtreeErr  *resolve.SubtreeError
	)

	switch {
	case errors.As(err, &pageErr):
		d.Type, d.Category = "not_found", "user"
		d.Reason, d.PageID = pageErr.Reason, pageErr.PageID
		if pageErr.Reason == resolve.ReasonServiceError {
			d.Category = "system"
		}
	case errors.As(err, &subtreeErr):
		d.Type = "partial"
		d.BlockID = subtreeErr.BlockID
	case errors.As(err, &authErr):
		d.Type, d.Category = "auth", "user"
	case errors.As(err, &invalidErr):
		d.Type, d.Category = "invalid_id", "user"
	case errors.As(err, &validErr):
		d.Type, d.Category = "validation", "user"
	case errors.As(err, &apiNotFound):
		d.Type, d.Category = "not_found", "user"
	case errors.As(err, &rateErr):
		d.Type = "rate_limit"
		d.RetryAfter = int(rateErr.RetryAfter.Seconds())
	case errors.Is(err, ledger.ErrRunNotFound):
		d.Type, d.Category = "not_found", "user"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		d.Type = "canceled"
	}

	return errorEnvelope{Error: d}
}
