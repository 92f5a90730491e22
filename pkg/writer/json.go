// Package writer writes reports as JSON, optionally compressed.
package writer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aot-inspect/pkg/compression"
)

// JSONWriter writes data as JSON.
type JSONWriter[T any] struct {
	// Indent specifies the indentation for pretty printing.
	// Empty string means compact output.
	Indent string
}

// NewJSONWriter creates a new JSON writer with compact output.
func NewJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: ""}
}

// NewPrettyJSONWriter creates a JSON writer with pretty printing.
func NewPrettyJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: "  "}
}

// Write writes the data as JSON to the writer.
func (w *JSONWriter[T]) Write(data T, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	if w.Indent != "" {
		encoder.SetIndent("", w.Indent)
	}
	return encoder.Encode(data)
}

// Marshal returns the encoded data.
func (w *JSONWriter[T]) Marshal(data T) ([]byte, error) {
	if w.Indent == "" {
		return json.Marshal(data)
	}
	return json.MarshalIndent(data, "", w.Indent)
}

// WriteToFile writes the data as JSON to a file.
func (w *JSONWriter[T]) WriteToFile(data T, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := w.Write(data, file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteResult contains statistics about a written file.
type WriteResult struct {
	Path           string
	Compression    compression.Type
	JSONSize       int64
	CompressedSize int64
	CompressionPct float64
}

// CompressedWriter writes JSON through a compressor.
type CompressedWriter[T any] struct {
	json  JSONWriter[T]
	Level compression.Level
}

// NewCompressedWriter creates a compressed writer with default level.
func NewCompressedWriter[T any]() *CompressedWriter[T] {
	return &CompressedWriter[T]{Level: compression.LevelDefault}
}

// Write encodes data and writes it compressed with typ.
func (w *CompressedWriter[T]) Write(data T, typ compression.Type, out io.Writer) (*WriteResult, error) {
	raw, err := w.json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}

	comp, err := compression.New(typ, w.Level)
	if err != nil {
		return nil, err
	}
	defer compression.Close(comp)

	packed, err := comp.Compress(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to compress data: %w", err)
	}
	if _, err := out.Write(packed); err != nil {
		return nil, fmt.Errorf("failed to write data: %w", err)
	}

	res := &WriteResult{
		Compression:    typ,
		JSONSize:       int64(len(raw)),
		CompressedSize: int64(len(packed)),
	}
	if res.JSONSize > 0 {
		res.CompressionPct = float64(res.CompressedSize) / float64(res.JSONSize) * 100
	}
	return res, nil
}

// WriteToFile writes data to path, compressing by the path suffix (.gz,
// .zst). Other suffixes are written as plain JSON.
func (w *CompressedWriter[T]) WriteToFile(data T, path string) (*WriteResult, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	res, err := w.Write(data, compression.TypeForPath(path), file)
	if err != nil {
		file.Close()
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	res.Path = path
	return res, nil
}
