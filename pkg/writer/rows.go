package writer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/sugawarayuuta/sonnet"

	"github.com/graph-analytics/pkg/compression"
	"github.com/graph-analytics/pkg/model"
)

// cancelCheckInterval is how many rows are written between context checks.
const cancelCheckInterval = 4096

// WriteResult describes an export.
type WriteResult struct {
	Rows           int64
	JSONSize       int64
	CompressedSize int64
	CompressionPct float64
}

// RowWriter streams rows as JSON lines through a codec.
type RowWriter struct {
	codec compression.Codec
}

// NewRowWriter creates a row writer. A nil codec writes plain JSON lines.
func NewRowWriter(codec compression.Codec) *RowWriter {
	if codec == nil {
		codec = compression.NoOpCodec{}
	}
	return &RowWriter{codec: codec}
}

// Codec returns the writer's codec.
func (w *RowWriter) Codec() compression.Codec {
	return w.codec
}

// Write encodes every row as {"node":...,"value":...} followed by a
// newline. A cancelled context stops the export with ctx.Err().
func (w *RowWriter) Write(ctx context.Context, rows iter.Seq[model.NodeValue], out io.Writer) (*WriteResult, error) {
	compressed := &countingWriter{w: out}
	cw, err := w.codec.NewWriter(compressed)
	if err != nil {
		return nil, err
	}
	raw := &countingWriter{w: cw}
	buf := bufio.NewWriter(raw)

	result := &WriteResult{}
	var writeErr error
	if rows != nil {
		for row := range rows {
			if result.Rows%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					writeErr = err
					break
				}
			}
			line, err := sonnet.Marshal(row)
			if err != nil {
				writeErr = fmt.Errorf("failed to marshal row for node %d: %w", row.Node, err)
				break
			}
			buf.Write(line)
			if err := buf.WriteByte('\n'); err != nil {
				writeErr = fmt.Errorf("failed to write row: %w", err)
				break
			}
			result.Rows++
		}
	}
	if writeErr != nil {
		cw.Close()
		return nil, writeErr
	}
	if err := buf.Flush(); err != nil {
		cw.Close()
		return nil, fmt.Errorf("failed to flush rows: %w", err)
	}
	if err := cw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s writer: %w", w.codec.Type(), err)
	}

	result.JSONSize = raw.n
	result.CompressedSize = compressed.n
	if raw.n > 0 {
		result.CompressionPct = float64(compressed.n) / float64(raw.n) * 100
	}
	return result, nil
}

// WriteToFile exports rows to path.
func (w *RowWriter) WriteToFile(ctx context.Context, rows iter.Seq[model.NodeValue], path string) (*WriteResult, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	result, err := w.Write(ctx, rows, file)
	if err != nil {
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return result, nil
}

// ReadRows decodes JSON lines written by RowWriter, detecting the codec
// from the header. Numeric values decode as float64 and walks as []any.
func ReadRows(r io.Reader) ([]model.NodeValue, error) {
	rc, _, err := compression.NewAutoReader(r)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var rows []model.NodeValue
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var row model.NodeValue
		if err := sonnet.Unmarshal(scanner.Bytes(), &row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
