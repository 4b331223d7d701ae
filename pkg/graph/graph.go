package graph

import (
	"fmt"

	"github.com/matzehuels/linkrank/pkg/index"
)

// Edge is a directed link between two node indices.
type Edge struct {
	From int
	To   int
}

// Graph is the output of a graph builder.
type Graph struct {
	// Edges holds every recorded link, duplicates included.
	Edges []Edge
	// Index maps node identities to the indices used in Edges.
	Index *index.Map
	// Visited lists the nodes whose links were retrieved, in visit order.
	// Edge-list graphs leave it empty.
	Visited []string
}

// N returns the number of nodes.
func (g *Graph) N() int {
	if g == nil {
		return 0
	}
	return g.Index.Len()
}

// Validate checks that every edge endpoint is a registered index.
func (g *Graph) Validate() error {
	n := g.N()
	for i, e := range g.Edges {
		if e.From < 0 || e.From >= n || e.To < 0 || e.To >= n {
			return fmt.Errorf("edge %d (%d->%d) out of range for %d nodes", i, e.From, e.To, n)
		}
	}
	return nil
}

// OutDegrees returns the number of outgoing edges per node.
func (g *Graph) OutDegrees() []int {
	deg := make([]int, g.N())
	for _, e := range g.Edges {
		deg[e.From]++
	}
	return deg
}

// Sinks returns the indices of nodes without outgoing edges in ascending
// order.
func (g *Graph) Sinks() []int {
	var out []int
	for i, d := range g.OutDegrees() {
		if d == 0 {
			out = append(out, i)
		}
	}
	return out
}

// Stats summarizes a graph for logs and reports.
type Stats struct {
	Nodes   int `json:"nodes" yaml:"nodes"`
	Edges   int `json:"edges" yaml:"edges"`
	Visited int `json:"visited,omitempty" yaml:"visited,omitempty"`
	Sinks   int `json:"sinks" yaml:"sinks"`
}

// Stats returns node, edge and sink counts.
func (g *Graph) Stats() Stats {
	return Stats{
		Nodes:   g.N(),
		Edges:   len(g.Edges),
		Visited: len(g.Visited),
		Sinks:   len(g.Sinks()),
	}
}
