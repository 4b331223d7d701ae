package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/linkrank/pkg/index"
)

type wireGraph struct {
	Nodes []wireNode `json:"nodes"`
	Edges []wireEdge `json:"edges"`
}

type wireNode struct {
	ID      string `json:"id"`
	Visited bool   `json:"visited,omitempty"`
}

type wireEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// =============================================================================
// Serialization API
// =============================================================================

// Marshal converts a graph to JSON bytes.
func Marshal(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes JSON bytes produced by Marshal.
func Unmarshal(data []byte) (*Graph, error) {
	return Read(bytes.NewReader(data))
}

// Write encodes g as indented JSON to w.
func Write(g *Graph, w io.Writer) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	visited := make(map[string]bool, len(g.Visited))
	for _, id := range g.Visited {
		visited[id] = true
	}

	out := wireGraph{
		Nodes: make([]wireNode, g.N()),
		Edges: make([]wireEdge, len(g.Edges)),
	}
	ids := g.Index.IDs()
	for i, id := range ids {
		out.Nodes[i] = wireNode{ID: id, Visited: visited[id]}
	}
	for i, e := range g.Edges {
		out.Edges[i] = wireEdge{From: ids[e.From], To: ids[e.To]}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteFile writes g to a JSON file at path.
func WriteFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(g, f)
}

// Read decodes a JSON graph from r. Node order determines indices. Edges
// may only reference listed nodes. Visited order follows node order.
func Read(r io.Reader) (*Graph, error) {
	var data wireGraph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	idx := index.New(len(data.Nodes))
	g := &Graph{Index: idx, Edges: make([]Edge, 0, len(data.Edges))}
	for _, n := range data.Nodes {
		if _, added := idx.Register(n.ID); !added {
			return nil, fmt.Errorf("node %s: duplicate id", n.ID)
		}
		if n.Visited {
			g.Visited = append(g.Visited, n.ID)
		}
	}
	idx.Freeze()

	for _, e := range data.Edges {
		from, ok := idx.Index(e.From)
		if !ok {
			return nil, fmt.Errorf("edge %s->%s: unknown source", e.From, e.To)
		}
		to, ok := idx.Index(e.To)
		if !ok {
			return nil, fmt.Errorf("edge %s->%s: unknown target", e.From, e.To)
		}
		g.Edges = append(g.Edges, Edge{From: from, To: to})
	}
	return g, nil
}

// ReadFile reads a JSON graph file.
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
