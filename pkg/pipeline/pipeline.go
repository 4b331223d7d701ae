// Package pipeline provides the acquire → solve → sort pipeline shared by
// the CLI and the HTTP server.
//
// # Architecture
//
// A run has two stages:
//
//  1. Acquire: crawl from seed URLs or load an edge-list file into a
//     [graph.Graph]
//  2. Rank: build the transition matrix, run power iteration and sort the
//     result
//
// Both stages are cached when the [Runner] has a cache: graphs under
// [cache.Keyer.CrawlKey] or [cache.Keyer.EdgeListKey], rank vectors under
// [cache.Keyer.RankKey].
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Mode = pipeline.ModeLoad
//	opts.EdgeFile = "web-Google.txt"
//	report, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, e := range rank.Top(report.Entries, 10) {
//	    fmt.Println(e.ID, e.Score)
//	}
//
// [graph.Graph]: github.com/matzehuels/linkrank/pkg/graph.Graph
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/linkrank/pkg/cache"
	"github.com/matzehuels/linkrank/pkg/crawl"
	"github.com/matzehuels/linkrank/pkg/edgelist"
	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/graph"
	"github.com/matzehuels/linkrank/pkg/matrix"
	"github.com/matzehuels/linkrank/pkg/rank"
)

// Graph sources.
const (
	ModeCrawl = "crawl"
	ModeLoad  = "load"
	// ModeGraph re-ranks a graph saved with graph.WriteFile.
	ModeGraph = "graph"
)

// Options contains all configuration for one run. It supports JSON for API
// requests; start from [DefaultOptions] so absent fields keep defaults.
type Options struct {
	Mode string `json:"mode"`

	// Crawl options
	Seeds           []string `json:"seeds,omitempty"`
	MaxDepth        int      `json:"max_depth"`
	MaxPages        int      `json:"max_pages"`
	MaxLinksPerPage int      `json:"max_links_per_page"`
	Seed            int64    `json:"seed"`

	// Load options. EdgeData takes precedence over EdgeFile.
	EdgeFile string `json:"edge_file,omitempty"`
	EdgeData []byte `json:"-"`
	MaxNodes int    `json:"max_nodes"`
	MaxEdges int    `json:"max_edges"`

	// GraphFile is the saved graph read in graph mode.
	GraphFile string `json:"graph_file,omitempty"`

	// Solver options
	MaxIterations int     `json:"max_iterations"`
	Damping       float64 `json:"damping"`
	Tolerance     float64 `json:"tolerance"`
	Workers       int     `json:"workers,omitempty"`
	Matrix        string  `json:"matrix,omitempty"` // auto, dense or sparse

	// Verify cross-checks the ranking against rank.Reference.
	Verify  bool `json:"verify,omitempty"`
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger      `json:"-"`
	OnPage func(crawl.Page) `json:"-"`
}

// DefaultOptions returns the defaults of both modes. Mode is left empty.
func DefaultOptions() Options {
	return Options{
		MaxDepth:        crawl.DefaultMaxDepth,
		MaxPages:        crawl.DefaultMaxPages,
		MaxLinksPerPage: crawl.DefaultMaxLinksPerPage,
		MaxNodes:        edgelist.DefaultMaxNodes,
		MaxEdges:        edgelist.DefaultMaxEdges,
		MaxIterations:   rank.DefaultMaxIterations,
		Damping:         rank.DefaultDamping,
		Tolerance:       rank.DefaultTolerance,
		Workers:         1,
		Matrix:          matrix.Auto.String(),
	}
}

// SetDefaults fills fields whose zero value is never meaningful.
func (o *Options) SetDefaults() {
	if o.MaxPages == 0 {
		o.MaxPages = crawl.DefaultMaxPages
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = rank.DefaultMaxIterations
	}
	if o.Damping == 0 {
		o.Damping = rank.DefaultDamping
	}
	if o.Tolerance == 0 {
		o.Tolerance = rank.DefaultTolerance
	}
	if o.Workers == 0 {
		o.Workers = 1
	}
	if o.Matrix == "" {
		o.Matrix = matrix.Auto.String()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks required fields and ranges. Call after SetDefaults.
func (o *Options) Validate() error {
	switch o.Mode {
	case ModeCrawl:
		if len(o.Seeds) == 0 {
			return errors.New(errors.ErrCodeInvalidArguments, "at least one seed URL is required")
		}
		for _, s := range o.Seeds {
			if err := errors.ValidateURL(s); err != nil {
				return err
			}
		}
		if err := o.CrawlOptions().Validate(); err != nil {
			return err
		}
	case ModeLoad:
		if len(o.EdgeData) == 0 {
			if err := errors.ValidatePath(o.EdgeFile); err != nil {
				return err
			}
		}
		if err := errors.ValidateMin("max_nodes", o.MaxNodes, 0); err != nil {
			return err
		}
		if err := errors.ValidateMin("max_edges", o.MaxEdges, 0); err != nil {
			return err
		}
	case ModeGraph:
		if err := errors.ValidatePath(o.GraphFile); err != nil {
			return err
		}
	default:
		return errors.New(errors.ErrCodeInvalidArguments, "mode must be %q, %q or %q, got %q", ModeCrawl, ModeLoad, ModeGraph, o.Mode)
	}
	if _, err := matrix.ParseKind(o.Matrix); err != nil {
		return err
	}
	ro := o.RankOptions()
	return ro.Validate()
}

// CrawlOptions returns the crawl bounds.
func (o *Options) CrawlOptions() crawl.Options {
	return crawl.Options{
		MaxDepth:        o.MaxDepth,
		MaxPages:        o.MaxPages,
		MaxLinksPerPage: o.MaxLinksPerPage,
		Seed:            o.Seed,
		Logger:          o.Logger,
		OnPage:          o.OnPage,
	}
}

// EdgeListOptions returns the ingestion bounds.
func (o *Options) EdgeListOptions() edgelist.Options {
	return edgelist.Options{MaxNodes: o.MaxNodes, MaxEdges: o.MaxEdges, Logger: o.Logger}
}

// RankOptions returns the solver parameters.
func (o *Options) RankOptions() rank.Options {
	return rank.Options{
		MaxIterations: o.MaxIterations,
		Damping:       o.Damping,
		Tolerance:     o.Tolerance,
		Workers:       o.Workers,
		Logger:        o.Logger,
	}
}

// CrawlKeyOpts returns cache key options for crawled graphs.
func (o *Options) CrawlKeyOpts() cache.CrawlKeyOpts {
	return cache.CrawlKeyOpts{
		MaxDepth:        o.MaxDepth,
		MaxPages:        o.MaxPages,
		MaxLinksPerPage: o.MaxLinksPerPage,
		Seed:            o.Seed,
	}
}

// EdgeListKeyOpts returns cache key options for ingested edge lists.
func (o *Options) EdgeListKeyOpts() cache.EdgeListKeyOpts {
	return cache.EdgeListKeyOpts{MaxNodes: o.MaxNodes, MaxEdges: o.MaxEdges}
}

// RankKeyOpts returns cache key options for rank vectors.
func (o *Options) RankKeyOpts() cache.RankKeyOpts {
	return cache.RankKeyOpts{
		MaxIterations: o.MaxIterations,
		Damping:       o.Damping,
		Tolerance:     o.Tolerance,
	}
}

// Report is the outcome of a run. It is what the CLI prints, the server
// returns and the store archives.
type Report struct {
	ID        string    `json:"id" yaml:"id" bson:"_id"`
	Mode      string    `json:"mode" yaml:"mode" bson:"mode"`
	Source    string    `json:"source" yaml:"source" bson:"source"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" bson:"created_at"`

	Graph  graph.Stats     `json:"graph" yaml:"graph" bson:"graph"`
	Ingest *edgelist.Stats `json:"ingest,omitempty" yaml:"ingest,omitempty" bson:"ingest,omitempty"`
	Matrix string          `json:"matrix" yaml:"matrix" bson:"matrix"`

	Iterations   int     `json:"iterations" yaml:"iterations" bson:"iterations"`
	Converged    bool    `json:"converged" yaml:"converged" bson:"converged"`
	Delta        float64 `json:"delta" yaml:"delta" bson:"delta"`
	DanglingMass float64 `json:"dangling_mass" yaml:"dangling_mass" bson:"dangling_mass"`
	Damping      float64 `json:"damping" yaml:"damping" bson:"damping"`

	// VerifyMaxDiff is the largest absolute difference to rank.Reference
	// when verification was requested.
	VerifyMaxDiff *float64 `json:"verify_max_diff,omitempty" yaml:"verify_max_diff,omitempty" bson:"verify_max_diff,omitempty"`

	Entries   []rank.Entry `json:"entries" yaml:"entries" bson:"entries"`
	Timings   Timings      `json:"timings" yaml:"timings" bson:"timings"`
	CacheInfo CacheInfo    `json:"cache" yaml:"cache" bson:"cache"`

	// Runtime results (not serialized)
	Ranks      []float64    `json:"-" yaml:"-" bson:"-"`
	GraphValue *graph.Graph `json:"-" yaml:"-" bson:"-"`
}

// Truncate returns a shallow copy keeping only the top k entries (k <= 0
// keeps all).
func (r *Report) Truncate(k int) *Report {
	cp := *r
	cp.Entries = rank.Top(r.Entries, k)
	return &cp
}

// Timings records wall time per stage.
type Timings struct {
	Acquire time.Duration `json:"acquire" yaml:"acquire" bson:"acquire"`
	Solve   time.Duration `json:"solve" yaml:"solve" bson:"solve"`
	Total   time.Duration `json:"total" yaml:"total" bson:"total"`
}

// CacheInfo tracks cache hits for each stage.
type CacheInfo struct {
	GraphHit bool `json:"graph_hit" yaml:"graph_hit" bson:"graph_hit"`
	RankHit  bool `json:"rank_hit" yaml:"rank_hit" bson:"rank_hit"`
}
