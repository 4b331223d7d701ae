// Package pkg holds the linkrank libraries.
//
// # Overview
//
// Linkrank builds a directed link graph and ranks its nodes with PageRank.
// A graph comes from one of two sources:
//
//  1. [crawl] - breadth-first traversal from seed URLs, links retrieved by [fetch]
//  2. [edgelist] - a "from to" text file such as the SNAP web-Google dataset
//
// # Architecture
//
//	seed URLs ──► [crawl] + [fetch]       edge-list file ──► [edgelist]
//	                    └────────► [graph] ◄────────┘
//	                                 ↓
//	                    [matrix] (dense or CSR transition matrix)
//	                                 ↓
//	                    [rank] (power iteration, sort)
//	                                 ↓
//	               [export] CSV/JSON/YAML, [render] SVG/PNG
//
// [pipeline] runs these stages with caching ([cache]) and observability
// hooks ([observability]). [server] exposes the pipeline over HTTP and
// archives reports in a [store]. [config] loads defaults from TOML.
//
// # Quick Start
//
//	opts := pipeline.DefaultOptions()
//	opts.Mode = pipeline.ModeLoad
//	opts.EdgeFile = "web-Google.txt"
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	report, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    return err
//	}
//	export.WriteFile("pagerank_results.csv", export.CSV, report.Entries, nil)
//
// [crawl]: github.com/matzehuels/linkrank/pkg/crawl
// [fetch]: github.com/matzehuels/linkrank/pkg/fetch
// [edgelist]: github.com/matzehuels/linkrank/pkg/edgelist
// [graph]: github.com/matzehuels/linkrank/pkg/graph
// [matrix]: github.com/matzehuels/linkrank/pkg/matrix
// [rank]: github.com/matzehuels/linkrank/pkg/rank
// [export]: github.com/matzehuels/linkrank/pkg/export
// [render]: github.com/matzehuels/linkrank/pkg/render
// [pipeline]: github.com/matzehuels/linkrank/pkg/pipeline
// [cache]: github.com/matzehuels/linkrank/pkg/cache
// [observability]: github.com/matzehuels/linkrank/pkg/observability
// [server]: github.com/matzehuels/linkrank/pkg/server
// [store]: github.com/matzehuels/linkrank/pkg/store
// [config]: github.com/matzehuels/linkrank/pkg/config
package pkg
