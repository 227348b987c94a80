package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"
)

// Format represents the output format type.
type Format string

const (
	// FormatText is human-readable key-value format (default).
	FormatText Format = "text"
	// FormatJSON is pretty-printed JSON format.
	FormatJSON Format = "json"
	// FormatNDJSON is newline-delimited JSON format.
	FormatNDJSON Format = "ndjson"
	// FormatTable is tabular format for lists.
	FormatTable Format = "table"
	// FormatYAML is YAML format.
	FormatYAML Format = "yaml"
)

// ParseFormat converts a string to a Format type.
// Empty string defaults to FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatNDJSON, FormatTable, FormatYAML:
		return f, nil
	default:
		return "", errors.New("invalid --output format (expected text|json|ndjson|table|yaml)")
	}
}

// IsStructured reports whether the format is machine-readable structured output.
func IsStructured(format Format) bool {
	switch format {
	case FormatJSON, FormatNDJSON, FormatYAML:
		return true
	default:
		return false
	}
}

// Printer handles output formatting across different formats.
type Printer struct {
	w      io.Writer
	format Format
}

// NewPrinter creates a new Printer that writes to w in the given format.
func NewPrinter(w io.Writer, format Format) *Printer {
	return &Printer{w: w, format: format}
}

// Print outputs data in the configured format. The --result-limit in ctx
// applies to lists; a --query applies to json and ndjson output.
func (p *Printer) Print(ctx context.Context, data interface{}) error {
	if data == nil {
		return nil
	}

	data = ApplyLimit(ctx, data)

	switch p.format {
	case FormatJSON:
		return p.printJSON(ctx, data, true)
	case FormatNDJSON:
		return p.printJSON(ctx, data, false)
	case FormatYAML:
		return p.printYAML(data)
	case FormatTable:
		return p.printTable(data)
	case FormatText:
		return p.printText(data)
	default:
		return fmt.Errorf("unsupported format: %s", p.format)
	}
}

func (p *Printer) encoder(indent bool) *json.Encoder {
	enc := json.NewEncoder(p.w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc
}

// printJSON writes data as JSON. Without indentation, lists are written one
// element per line.
func (p *Printer) printJSON(ctx context.Context, data interface{}, indent bool) error {
	enc := p.encoder(indent)

	if query := QueryFromContext(ctx); query != "" {
		results, err := runQuery(ctx, query, data)
		if err != nil {
			return err
		}
		for _, v := range results {
			if err := enc.Encode(v); err != nil {
				return err
			}
		}
		return nil
	}

	if !indent {
		if v := indirect(reflect.ValueOf(data)); v.IsValid() && v.Kind() == reflect.Slice {
			for i := 0; i < v.Len(); i++ {
				if err := enc.Encode(v.Index(i).Interface()); err != nil {
					return err
				}
			}
			return nil
		}
	}

	return enc.Encode(data)
}

// runQuery evaluates a jq expression. The data is normalized through JSON
// first so the query sees the same shape that json output would print.
func runQuery(ctx context.Context, query string, data interface{}) ([]interface{}, error) {
	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("invalid --query: %w", err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("invalid --query: %w", err)
	}

	input, err := jsonValue(data)
	if err != nil {
		return nil, err
	}

	var results []interface{}
	iter := code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("query error: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

// jsonValue converts data to the generic form encoding/json decodes into.
func jsonValue(data interface{}) (interface{}, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// printYAML writes data as YAML, using the same field names as json output.
func (p *Printer) printYAML(data interface{}) error {
	v, err := jsonValue(data)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(v)
}

// printText outputs maps and structs as key-value pairs, lists one item per
// line and anything else directly.
func (p *Printer) printText(data interface{}) error {
	v := indirect(reflect.ValueOf(data))
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, key := range keys {
			if _, err := fmt.Fprintf(p.w, "%v: %v\n", key.Interface(), v.MapIndex(key).Interface()); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		for _, f := range exportedFields(v.Type()) {
			value := v.Field(f.index)
			if f.omitEmpty && value.IsZero() {
				continue
			}
			if _, err := fmt.Fprintf(p.w, "%s: %v\n", f.name, value.Interface()); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if _, err := fmt.Fprintln(p.w, v.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintln(p.w, v.Interface())
		return err
	}
}

func (p *Printer) printTable(data interface{}) error {
	switch t := data.(type) {
	case Table:
		return p.printTableData(t.Headers, t.Rows)
	case Tabular:
		table := t.Table()
		return p.printTableData(table.Headers, table.Rows)
	}

	v := indirect(reflect.ValueOf(data))
	if !v.IsValid() {
		return nil
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return fmt.Errorf("table format requires a list of items")
	}
	if v.Len() == 0 {
		return nil
	}

	headers, rows := buildTable(v)
	return p.printTableData(headers, rows)
}

func (p *Printer) printTableData(headers []string, rows [][]string) error {
	w := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	return w.Flush()
}

type structField struct {
	name      string
	index     int
	omitEmpty bool
}

// exportedFields lists a struct's exported fields, named by their json tag.
// Fields tagged "-" are skipped.
func exportedFields(t reflect.Type) []structField {
	fields := make([]structField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			name = parts[0]
		}
		fields = append(fields, structField{
			name:      name,
			index:     i,
			omitEmpty: strings.Contains(tag, "omitempty"),
		})
	}
	return fields
}

func buildTable(v reflect.Value) ([]string, [][]string) {
	first := indirect(v.Index(0))

	if !first.IsValid() || first.Kind() != reflect.Struct {
		rows := make([][]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			rows = append(rows, []string{fmt.Sprint(v.Index(i).Interface())})
		}
		return []string{"value"}, rows
	}

	fields := exportedFields(first.Type())
	headers := make([]string, len(fields))
	for i, f := range fields {
		headers[i] = f.name
	}

	rows := make([][]string, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		item := indirect(v.Index(i))
		if !item.IsValid() || item.Kind() != reflect.Struct {
			rows = append(rows, []string{fmt.Sprint(v.Index(i).Interface())})
			continue
		}
		row := make([]string, len(fields))
		for j, f := range fields {
			row[j] = fmt.Sprint(item.Field(f.index).Interface())
		}
		rows = append(rows, row)
	}

	return headers, rows
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
