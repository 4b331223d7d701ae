package edgelist

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/graph"
)

func TestRead_Cycle(t *testing.T) {
	g, st, err := Read(strings.NewReader("0 1\n1 2\n# comment\n2 0\n"), Options{MaxNodes: 100, MaxEdges: 100})
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	if len(g.Edges) != 3 || g.N() != 3 {
		t.Fatalf("got %d edges, %d nodes; want 3 and 3", len(g.Edges), g.N())
	}
	want := []graph.Edge{{From: 0, To: 1}, {From: 1, To: 2}, {From: 2, To: 0}}
	if !reflect.DeepEqual(g.Edges, want) {
		t.Errorf("Edges = %v, want %v", g.Edges, want)
	}
	if st.Comments != 1 || st.Accepted != 3 || st.Truncated {
		t.Errorf("Stats = %+v", st)
	}
	if !g.Index.Frozen() {
		t.Error("index not frozen")
	}
}

func TestRead_FirstSeenOrder(t *testing.T) {
	g, _, err := Read(strings.NewReader("7 3\n3 9\n9 7\n"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Index.IDs(); !reflect.DeepEqual(got, []string{"7", "3", "9"}) {
		t.Errorf("IDs() = %v", got)
	}
}

func TestRead_MaxNodes(t *testing.T) {
	input := "0 1\n1 5\n5 0\n1 0\n"
	g, st, err := Read(strings.NewReader(input), Options{MaxNodes: 5, MaxEdges: 2})
	if err != nil {
		t.Fatal(err)
	}
	// 1 5 and 5 0 are skipped and do not use up the edge budget.
	if len(g.Edges) != 2 || st.Skipped != 2 {
		t.Errorf("edges = %d skipped = %d, want 2 and 2", len(g.Edges), st.Skipped)
	}
	if g.Index.Contains("5") {
		t.Error("skipped node 5 was registered")
	}
	if !st.Truncated {
		t.Error("Truncated = false at edge budget")
	}
}

func TestRead_MaxEdgesStopsEarly(t *testing.T) {
	input := "0 1\n1 2\n2 3\nnot parsed\n"
	g, st, err := Read(strings.NewReader(input), Options{MaxEdges: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Edges) != 2 || st.Lines != 2 {
		t.Errorf("edges = %d lines = %d, want 2 and 2", len(g.Edges), st.Lines)
	}
	if st.Malformed != 0 {
		t.Error("read past the edge budget")
	}
}

func TestRead_MultiEdgesKept(t *testing.T) {
	g, _, err := Read(strings.NewReader("0 1\n0 1\n1 1\n"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Edges) != 3 {
		t.Errorf("edges = %d, want 3", len(g.Edges))
	}
}

func TestRead_Malformed(t *testing.T) {
	var buf bytes.Buffer
	input := "0 1\nfoo bar\n3\n-1 2\n\n1\t2\textra\n"

	g, st, err := Read(strings.NewReader(input), Options{Logger: log.New(&buf)})
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if st.Malformed != 3 {
		t.Errorf("Malformed = %d, want 3", st.Malformed)
	}
	if len(g.Edges) != 2 {
		t.Errorf("edges = %d, want 2", len(g.Edges))
	}
	if !strings.Contains(buf.String(), "malformed") {
		t.Errorf("no warning logged: %q", buf.String())
	}
}

func TestRead_Empty(t *testing.T) {
	g, st, err := Read(strings.NewReader("# only comments\n"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if g.N() != 0 || st.Accepted != 0 {
		t.Errorf("got %d nodes, want 0", g.N())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "web.txt")
	if err := os.WriteFile(path, []byte("# FromNodeId\tToNodeId\n0\t1\n1\t0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	g, _, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(g.Edges) != 2 {
		t.Errorf("edges = %d, want 2", len(g.Edges))
	}

	_, _, err = Load(filepath.Join(dir, "missing.txt"), Options{})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v, want FILE_NOT_FOUND", err)
	}

	_, _, err = Load("", Options{})
	if !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("Load(\"\") error = %v, want INVALID_PATH", err)
	}
}
