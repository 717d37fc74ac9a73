// Package formatter writes selected rows to an output stream.
package formatter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

var ErrUnknownFormat = errors.New("unknown output format")

// Format names an output encoding.
type Format string

const (
	// FormatJSON writes one compact JSON object per line.
	FormatJSON Format = "json"
	// FormatPretty writes indented JSON objects.
	FormatPretty Format = "pretty"
	// FormatYAML writes a single YAML sequence with one item per row.
	FormatYAML Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatPretty, FormatYAML}

// ParseFormat returns the format named by s.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Formatter writes rows one at a time. Close must be called once every row
// has been written.
type Formatter interface {
	WriteRow(row map[string]any) error
	Close() error
}

// New returns a formatter writing format to w.
func New(format Format, w io.Writer) (Formatter, error) {
	switch format {
	case FormatJSON, FormatPretty:
		encoder := json.NewEncoder(w)
		encoder.SetEscapeHTML(false)
		if format == FormatPretty {
			encoder.SetIndent("", "  ")
		}
		return &jsonFormatter{encoder: encoder}, nil
	case FormatYAML:
		return &yamlFormatter{writer: w}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

type jsonFormatter struct {
	encoder *json.Encoder
}

func (f *jsonFormatter) WriteRow(row map[string]any) error {
	if err := f.encoder.Encode(row); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func (f *jsonFormatter) Close() error {
	return nil
}

// yamlFormatter emits each row as its own sequence item so rows stream out
// without buffering the whole result.
type yamlFormatter struct {
	writer io.Writer
	rows   int
}

func (f *yamlFormatter) WriteRow(row map[string]any) error {
	payload, err := yaml.Marshal([]map[string]any{row})
	if err != nil {
		return fmt.Errorf("encode YAML: %w", err)
	}
	if _, err := f.writer.Write(payload); err != nil {
		return err
	}
	f.rows++
	return nil
}

func (f *yamlFormatter) Close() error {
	if f.rows == 0 {
		_, err := io.WriteString(f.writer, "[]\n")
		return err
	}
	return nil
}
