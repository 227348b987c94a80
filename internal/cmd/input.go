package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/salmonumbrella/notion-cli/internal/api"
)

// readInputSource reads content from a file path or stdin when source is "-".
func readInputSource(source string, stdin io.Reader) (string, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return "", fmt.Errorf("empty input source")
	}

	var r io.Reader = stdin
	if trimmed != "-" {
		file, err := os.Open(trimmed)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", trimmed, err)
		}
		defer file.Close()
		r = file
	} else if r == nil {
		r = os.Stdin
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

// jsonArg returns the JSON given inline or in file, checking it parses.
// Neither set yields nil.
func jsonArg(name, inline, file string, stdin io.Reader) (json.RawMessage, error) {
	if inline != "" && file != "" {
		return nil, api.ValidationError{Message: fmt.Sprintf("use only one of --%s or --%s-file", name, name)}
	}
	value := strings.TrimSpace(inline)
	if file != "" {
		loaded, err := readInputSource(file, stdin)
		if err != nil {
			return nil, err
		}
		value = loaded
	}
	if value == "" {
		return nil, nil
	}
	if !json.Valid([]byte(value)) {
		return nil, api.ValidationError{Message: fmt.Sprintf("--%s is not valid JSON", name)}
	}
	return json.RawMessage(value), nil
}
