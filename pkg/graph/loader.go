package graph

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/graph-analytics/pkg/errors"
)

// LoadOptions controls edge list parsing.
type LoadOptions struct {
	Undirected bool
	// DefaultWeight applies to lines without a weight column. Zero means
	// DefaultWeight.
	DefaultWeight float64
}

// LoadEdgeList reads whitespace-separated lines of "source target [weight]".
// A line holding a single id declares an isolated node. Blank lines and lines
// starting with '#' or '%' are skipped.
func LoadEdgeList(r io.Reader, opts LoadOptions) (*CSRGraph, error) {
	defaultWeight := opts.DefaultWeight
	if defaultWeight == 0 {
		defaultWeight = DefaultWeight
	}
	var builderOpts []BuilderOption
	if opts.Undirected {
		builderOpts = append(builderOpts, Undirected())
	}
	b := NewBuilder(builderOpts...)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '%' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 3 {
			return nil, apperrors.Newf(apperrors.CodeParseError, "line %d: expected at most 3 columns, got %d", lineNo, len(fields))
		}

		source, err := parseID(fields[0], lineNo)
		if err != nil {
			return nil, err
		}
		if len(fields) == 1 {
			b.AddNode(source)
			continue
		}
		target, err := parseID(fields[1], lineNo)
		if err != nil {
			return nil, err
		}
		weight := defaultWeight
		if len(fields) == 3 {
			weight, err = strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.CodeParseError, "line "+strconv.Itoa(lineNo)+": invalid weight", err)
			}
		}
		b.AddRelationship(source, target, weight)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeParseError, "failed to read edge list", err)
	}
	return b.Build()
}

// LoadEdgeListFile opens path and loads it with LoadEdgeList.
func LoadEdgeListFile(path string, opts LoadOptions) (*CSRGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.CodeNotFound, "edge list not found: "+path, err)
		}
		return nil, apperrors.Wrap(apperrors.CodeParseError, "failed to open edge list", err)
	}
	defer f.Close()
	return LoadEdgeList(f, opts)
}

func parseID(s string, lineNo int) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeParseError, "line "+strconv.Itoa(lineNo)+": invalid node id "+strconv.Quote(s), err)
	}
	return id, nil
}
