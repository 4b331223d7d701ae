// Package export writes rankings to files.
//
// Three formats are supported:
//
//   - csv: one row per node with the header "Index,PageRank,Name"
//   - json: an indented JSON document
//   - yaml: the same document as YAML
//
// CSV rows come from a sorted ranking (see [rank.Sort]); JSON and YAML
// encode whatever document the caller passes, typically a run report that
// embeds the ranking.
//
//	entries := rank.Sort(res.Ranks, g.Index)
//	err := export.WriteFile("pagerank_results.csv", export.CSV, entries, nil)
//
// [rank.Sort]: github.com/matzehuels/linkrank/pkg/rank.Sort
package export
