package cmd

import (
	"io"
	"log/slog"
	"strings"
)

const redacted = "***REDACTED***"

var sensitiveLogKeys = map[string]bool{
	"authorization": true,
	"token":         true,
	"api_token":     true,
	"password":      true,
	"secret":        true,
}

// newLogger returns a text logger on w. Attributes with sensitive keys and
// bearer credentials are masked.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactAttr,
	}))
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if sensitiveLogKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, redacted)
	}
	if a.Value.Kind() == slog.KindString && strings.HasPrefix(strings.ToLower(a.Value.String()), "bearer ") {
		return slog.String(a.Key, redacted)
	}
	return a
}
