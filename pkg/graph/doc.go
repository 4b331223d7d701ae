// Package graph defines the directed link graph handed from the graph
// builders to the transition matrix builder, along with its JSON wire
// format.
//
// A [Graph] is an edge list over dense node indices plus the frozen
// [index.Map] that names those indices. Multi-edges and self-loops are kept:
// the matrix builder counts repeated edges, so a page that links to the same
// target twice gives that target twice the weight.
//
// # Serialization
//
// Graphs use a node-link JSON format keyed by node identity, so a file stays
// meaningful without the index map that produced it:
//
//	{
//	  "nodes": [{"id": "http://a/"}, {"id": "http://b/", "visited": true}],
//	  "edges": [{"from": "http://a/", "to": "http://b/"}]
//	}
//
// Node order in the file is index order, so reading a graph back reproduces
// the same indices.
//
//	data, _ := graph.Marshal(g)
//	back, _ := graph.Unmarshal(data)
package graph
