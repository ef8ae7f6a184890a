// Package writer renders run results as JSON: whole documents for summaries
// and JSON lines for per-node rows.
package writer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sugawarayuuta/sonnet"
)

// JSONWriter writes one value as a JSON document.
type JSONWriter[T any] struct {
	// Indent is the per-level indentation. Empty means compact.
	Indent string
}

// NewJSONWriter creates a compact writer.
func NewJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{}
}

// NewPrettyJSONWriter creates a writer indenting by two spaces.
func NewPrettyJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: "  "}
}

// Write encodes data followed by a newline.
func (w *JSONWriter[T]) Write(data T, out io.Writer) error {
	raw, err := sonnet.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	if w.Indent != "" {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", w.Indent); err != nil {
			return fmt.Errorf("failed to indent data: %w", err)
		}
		raw = buf.Bytes()
	}
	raw = append(raw, '\n')
	_, err = out.Write(raw)
	return err
}

// WriteToFile writes data to path, replacing any existing file.
func (w *JSONWriter[T]) WriteToFile(data T, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := w.Write(data, file); err != nil {
		return err
	}
	return file.Close()
}
