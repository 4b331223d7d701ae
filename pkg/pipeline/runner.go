package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/linkrank/pkg/cache"
	"github.com/matzehuels/linkrank/pkg/crawl"
	"github.com/matzehuels/linkrank/pkg/edgelist"
	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/fetch"
	"github.com/matzehuels/linkrank/pkg/graph"
	"github.com/matzehuels/linkrank/pkg/matrix"
	"github.com/matzehuels/linkrank/pkg/observability"
	"github.com/matzehuels/linkrank/pkg/rank"
)

// Archive persists finished reports. pkg/store provides implementations.
type Archive interface {
	Save(ctx context.Context, r *Report) error
}

// Runner encapsulates pipeline execution with caching.
//
// The Runner holds no per-run state; multiple goroutines can use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Fetcher serves crawl mode. When nil an HTTP client from pkg/fetch is
	// created per run, sharing the runner's cache.
	Fetcher crawl.Fetcher
	// Archive receives every successful report (optional).
	Archive Archive
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs acquire → rank → sort and returns the report.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Report, error) {
	r.applyLogger(&opts)
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	report := &Report{
		ID:        uuid.NewString(),
		Mode:      opts.Mode,
		Source:    source(opts),
		CreatedAt: start.UTC(),
		Damping:   opts.Damping,
	}

	// Stage 1: Acquire
	g, st, hit, err := r.Acquire(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("acquire: %w", err)
	}
	report.GraphValue = g
	report.Graph = g.Stats()
	report.Ingest = st
	report.CacheInfo.GraphHit = hit
	report.Timings.Acquire = time.Since(start)

	opts.Logger.Info("graph ready",
		"nodes", report.Graph.Nodes,
		"edges", report.Graph.Edges,
		"sinks", report.Graph.Sinks,
		"cached", hit,
		"duration", report.Timings.Acquire)

	// Stage 2: Rank
	solveStart := time.Now()
	res, kind, hit, err := r.Rank(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	report.Ranks = res.Ranks
	report.Matrix = kind.String()
	report.Iterations = res.Iterations
	report.Converged = res.Converged
	report.Delta = res.Delta
	report.DanglingMass = res.DanglingMass
	report.CacheInfo.RankHit = hit
	report.Timings.Solve = time.Since(solveStart)

	if opts.Verify {
		ref, err := rank.Reference(g.Edges, g.N(), opts.RankOptions())
		if err != nil {
			return nil, fmt.Errorf("verify: %w", err)
		}
		diff := rank.MaxDiff(res.Ranks, ref.Ranks)
		report.VerifyMaxDiff = &diff
		opts.Logger.Info("verified against reference", "max_diff", diff)
	}

	report.Entries = rank.Sort(res.Ranks, g.Index)
	report.Timings.Total = time.Since(start)

	if r.Archive != nil {
		if err := r.Archive.Save(ctx, report); err != nil {
			opts.Logger.Warn("archive report failed", "id", report.ID, "err", err)
		}
	}
	return report, nil
}

// Acquire crawls or loads the graph, using the cache unless opts.Refresh is
// set. It reports ingestion stats for fresh edge-list loads and whether the
// graph came from the cache.
func (r *Runner) Acquire(ctx context.Context, opts Options) (*graph.Graph, *edgelist.Stats, bool, error) {
	hooks := observability.Pipeline()
	hooks.OnAcquireStart(ctx, opts.Mode, source(opts))
	start := time.Now()

	g, st, hit, err := r.acquire(ctx, opts)

	var nodes, edges int
	if err == nil {
		nodes, edges = g.N(), len(g.Edges)
	}
	hooks.OnAcquireComplete(ctx, opts.Mode, nodes, edges, time.Since(start), err)
	return g, st, hit, err
}

func (r *Runner) acquire(ctx context.Context, opts Options) (*graph.Graph, *edgelist.Stats, bool, error) {
	if opts.Mode == ModeGraph {
		g, err := loadGraph(opts.GraphFile)
		return g, nil, false, err
	}

	var key string
	switch opts.Mode {
	case ModeCrawl:
		key = r.Keyer.CrawlKey(opts.Seeds, opts.CrawlKeyOpts())
	case ModeLoad:
		data, err := edgeData(opts)
		if err != nil {
			return nil, nil, false, err
		}
		opts.EdgeData = data
		key = r.Keyer.EdgeListKey(cache.Hash(data), opts.EdgeListKeyOpts())
	}

	if !opts.Refresh {
		if g, ok := r.cachedGraph(ctx, key); ok {
			observability.Cache().OnCacheHit(ctx, "graph")
			return g, nil, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "graph")
	}

	var (
		g   *graph.Graph
		st  *edgelist.Stats
		err error
	)
	switch opts.Mode {
	case ModeCrawl:
		g, err = crawl.Crawl(ctx, opts.Seeds, r.fetcher(opts), opts.CrawlOptions())
	case ModeLoad:
		g, st, err = edgelist.Read(bytes.NewReader(opts.EdgeData), opts.EdgeListOptions())
	}
	if err != nil {
		return nil, nil, false, err
	}
	if g.N() == 0 {
		return nil, nil, false, errors.New(errors.ErrCodeEmptyGraph, "%s produced no nodes", source(opts))
	}

	if data, err := graph.Marshal(g); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLGraph); err == nil {
			observability.Cache().OnCacheSet(ctx, "graph", len(data))
		}
	}
	return g, st, false, nil
}

func (r *Runner) cachedGraph(ctx context.Context, key string) (*graph.Graph, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		return nil, false
	}
	g, err := graph.Unmarshal(data)
	if err != nil {
		return nil, false
	}
	return g, true
}

// Rank builds the transition matrix for g and solves it, reusing a cached
// rank vector for the same graph and solver parameters. The returned kind is
// the resolved matrix layout.
func (r *Runner) Rank(ctx context.Context, g *graph.Graph, opts Options) (*rank.Result, matrix.Kind, bool, error) {
	kind, err := matrix.ParseKind(opts.Matrix)
	if err != nil {
		return nil, kind, false, err
	}
	kind = kind.Resolve(g.N())

	var key string
	if data, err := graph.Marshal(g); err == nil {
		key = r.Keyer.RankKey(cache.Hash(data), opts.RankKeyOpts())
	}
	if key != "" && !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var res rank.Result
			if err := json.Unmarshal(data, &res); err == nil && len(res.Ranks) == g.N() {
				observability.Cache().OnCacheHit(ctx, "rank")
				return &res, kind, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "rank")
	}

	hooks := observability.Pipeline()
	hooks.OnSolveStart(ctx, g.N(), kind.String())
	start := time.Now()

	res, err := solve(ctx, g, kind, opts)

	var (
		iterations int
		converged  bool
	)
	if err == nil {
		iterations, converged = res.Iterations, res.Converged
	}
	hooks.OnSolveComplete(ctx, iterations, converged, time.Since(start), err)
	if err != nil {
		return nil, kind, false, err
	}

	if key != "" {
		if data, err := json.Marshal(res); err == nil {
			if err := r.Cache.Set(ctx, key, data, cache.TTLRank); err == nil {
				observability.Cache().OnCacheSet(ctx, "rank", len(data))
			}
		}
	}
	return res, kind, false, nil
}

func solve(ctx context.Context, g *graph.Graph, kind matrix.Kind, opts Options) (*rank.Result, error) {
	m, err := matrix.FromGraph(g, matrix.Options{Kind: kind, Logger: opts.Logger})
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("transition matrix built", "kind", kind, "rows", m.Rows(), "nnz", m.NNZ(), "dangling", len(m.Dangling()))
	return rank.Solve(ctx, m, opts.RankOptions())
}

func (r *Runner) fetcher(opts Options) crawl.Fetcher {
	if r.Fetcher != nil {
		return r.Fetcher
	}
	return fetch.New(fetch.Options{
		Cache:   r.Cache,
		Keyer:   r.Keyer,
		Refresh: opts.Refresh,
		Logger:  opts.Logger,
	})
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func edgeData(opts Options) ([]byte, error) {
	if len(opts.EdgeData) > 0 {
		return opts.EdgeData, nil
	}
	data, err := os.ReadFile(opts.EdgeFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "edge list %s", opts.EdgeFile)
		}
		return nil, fmt.Errorf("read %s: %w", opts.EdgeFile, err)
	}
	return data, nil
}

// loadGraph reads a saved graph. The file is not cached; it already is one.
func loadGraph(path string) (*graph.Graph, error) {
	g, err := graph.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "graph %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "graph %s", path)
	}
	if g.N() == 0 {
		return nil, errors.New(errors.ErrCodeEmptyGraph, "%s has no nodes", path)
	}
	return g, nil
}

func source(opts Options) string {
	switch opts.Mode {
	case ModeCrawl:
		return strings.Join(opts.Seeds, ",")
	case ModeGraph:
		return opts.GraphFile
	}
	if len(opts.EdgeData) > 0 && opts.EdgeFile == "" {
		return "upload"
	}
	return opts.EdgeFile
}
