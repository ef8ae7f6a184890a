// Package testutil provides utilities for testing.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"testing"
)

// GetTestDataPath returns the absolute path to a file in the testdata directory.
// It searches for testdata in the caller's directory and parent directories.
func GetTestDataPath(t *testing.T, filename string) string {
	t.Helper()
	return testDataPath(t, 2, filename)
}

func testDataPath(t *testing.T, skip int, filename string) string {
	t.Helper()

	_, callerFile, _, ok := runtime.Caller(skip)
	if !ok {
		t.Fatal("failed to get caller file path")
	}

	// Search for testdata directory starting from caller's directory
	dir := filepath.Dir(callerFile)
	for i := 0; i < 5; i++ { // Search up to 5 levels
		testdataPath := filepath.Join(dir, "testdata", filename)
		if _, err := os.Stat(testdataPath); err == nil {
			return testdataPath
		}
		dir = filepath.Dir(dir)
	}

	// Fallback to relative path
	return filepath.Join("testdata", filename)
}

// Edge is one relationship of a fixture.
type Edge struct {
	Source, Target int64
	Weight         float64
}

// Fixture is an edge list read independently of the graph loader, used to
// check algorithm output against the input.
type Fixture struct {
	Path  string
	Nodes []int64
	Edges []Edge
}

// LoadFixture reads an edge-list fixture from testdata. Weights default to 1.
func LoadFixture(t *testing.T, filename string) *Fixture {
	t.Helper()
	path := testDataPath(t, 2, filename)
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", filename, err)
	}
	defer f.Close()

	fx := &Fixture{Path: path}
	seen := make(map[int64]struct{})
	addNode := func(id int64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			fx.Nodes = append(fx.Nodes, id)
		}
	}

	scanner := bufio.NewScanner(f)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == '%' {
			continue
		}
		fields := strings.Fields(line)
		ids := make([]int64, 0, 2)
		for _, field := range fields[:min(2, len(fields))] {
			id, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				t.Fatalf("%s:%d: %v", filename, lineNo, err)
			}
			addNode(id)
			ids = append(ids, id)
		}
		if len(ids) < 2 {
			continue
		}
		edge := Edge{Source: ids[0], Target: ids[1], Weight: 1}
		if len(fields) > 2 {
			if edge.Weight, err = strconv.ParseFloat(fields[2], 64); err != nil {
				t.Fatalf("%s:%d: %v", filename, lineNo, err)
			}
		}
		fx.Edges = append(fx.Edges, edge)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("failed to read fixture %s: %v", filename, err)
	}
	sort.Slice(fx.Nodes, func(i, j int) bool { return fx.Nodes[i] < fx.Nodes[j] })
	return fx
}

// Neighbors returns the adjacency of the fixture, both directions when
// undirected is set.
func (fx *Fixture) Neighbors(undirected bool) map[int64]map[int64]float64 {
	adj := make(map[int64]map[int64]float64, len(fx.Nodes))
	link := func(a, b int64, w float64) {
		if adj[a] == nil {
			adj[a] = make(map[int64]float64)
		}
		adj[a][b] = w
	}
	for _, e := range fx.Edges {
		link(e.Source, e.Target, e.Weight)
		if undirected {
			link(e.Target, e.Source, e.Weight)
		}
	}
	return adj
}

// HasNode reports whether id appears in the fixture.
func (fx *Fixture) HasNode(id int64) bool {
	i := sort.Search(len(fx.Nodes), func(i int) bool { return fx.Nodes[i] >= id })
	return i < len(fx.Nodes) && fx.Nodes[i] == id
}

// WriteEdgeList writes edges as "source target weight" lines to a new file
// in a temporary directory and returns its path.
func WriteEdgeList(t *testing.T, edges []Edge) string {
	t.Helper()
	var sb strings.Builder
	for _, e := range edges {
		fmt.Fprintf(&sb, "%d %d %g\n", e.Source, e.Target, e.Weight)
	}
	path := filepath.Join(t.TempDir(), "edges.txt")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatalf("failed to write edge list: %v", err)
	}
	return path
}
