package cmd

import (
	"context"

	"github.com/salmonumbrella/notion-cli/internal/output"
)

func structuredOutputRequested(ctx context.Context) bool {
	return output.IsStructured(output.FormatFromContext(ctx))
}

func printStructured(ctx context.Context, data interface{}) error {
	printer := output.NewPrinter(stdoutFromContext(ctx), output.FormatFromContext(ctx))
	return printer.Print(ctx, data)
}

// printData prints data in the selected format. In text format, textFn is
// used instead of the generic key-value layout.
func printData(ctx context.Context, data interface{}, textFn func() error) error {
	if output.FormatFromContext(ctx) == output.FormatText && textFn != nil {
		return textFn()
	}
	return printStructured(ctx, data)
}

// maskToken masks a token for display, showing only first and last 4 characters
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
