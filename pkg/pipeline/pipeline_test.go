package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/linkrank/pkg/cache"
	"github.com/matzehuels/linkrank/pkg/crawl"
	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/graph"
	"github.com/matzehuels/linkrank/pkg/observability"
	"github.com/matzehuels/linkrank/pkg/rank"
)

const site = "https://site.test/"

func siteFetcher(calls *int) crawl.Fetcher {
	pages := map[string][]string{
		site:            {site + "a", site + "b"},
		site + "a":      {site, site + "b"},
		site + "b":      {site},
		site + "orphan": nil,
	}
	var mu sync.Mutex
	return crawl.FetcherFunc(func(_ context.Context, url string) ([]string, error) {
		mu.Lock()
		*calls++
		mu.Unlock()
		return pages[url], nil
	})
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(c, nil, nil)
}

func crawlOpts() Options {
	opts := DefaultOptions()
	opts.Mode = ModeCrawl
	opts.Seeds = []string{site}
	return opts
}

func TestExecuteCrawl(t *testing.T) {
	var calls int
	r := newTestRunner(t)
	r.Fetcher = siteFetcher(&calls)

	rep, err := r.Execute(context.Background(), crawlOpts())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if rep.ID == "" || rep.Mode != ModeCrawl || rep.Source != site {
		t.Errorf("report header = %+v", rep)
	}
	if rep.Graph.Nodes != 3 || rep.Graph.Edges != 5 || rep.Graph.Visited != 3 {
		t.Errorf("graph stats = %+v", rep.Graph)
	}
	if !rep.Converged || rep.Matrix != "dense" {
		t.Errorf("converged=%v matrix=%s", rep.Converged, rep.Matrix)
	}
	if len(rep.Entries) != 3 || rep.Entries[0].ID != site {
		t.Errorf("entries = %+v", rep.Entries)
	}
	if s := rank.Sum(rep.Ranks); s < 1-1e-9 || s > 1+1e-9 {
		t.Errorf("ranks sum to %v", s)
	}
	if calls != 3 {
		t.Errorf("fetcher called %d times, want 3", calls)
	}
}

func TestExecuteCrawlZeroLinksPerPage(t *testing.T) {
	var calls int
	r := newTestRunner(t)
	r.Fetcher = siteFetcher(&calls)

	opts := crawlOpts()
	opts.MaxLinksPerPage = 0
	rep, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	// Zero keeps no links: only the seed is visited.
	if rep.Graph.Nodes != 1 || rep.Graph.Edges != 0 || calls != 1 {
		t.Errorf("graph = %+v after %d fetches, want one node and no edges", rep.Graph, calls)
	}
}

func TestExecuteSavedGraph(t *testing.T) {
	var calls int
	r := newTestRunner(t)
	r.Fetcher = siteFetcher(&calls)

	crawled, err := r.Execute(context.Background(), crawlOpts())
	if err != nil {
		t.Fatalf("crawl error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "site.json")
	if err := graph.WriteFile(crawled.GraphValue, path); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	opts := DefaultOptions()
	opts.Mode = ModeGraph
	opts.GraphFile = path
	rep, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute(graph) error: %v", err)
	}
	if rep.Source != path || rep.Graph != crawled.Graph {
		t.Errorf("report = %+v, want graph %+v", rep.Graph, crawled.Graph)
	}
	if !rep.CacheInfo.RankHit {
		t.Error("same graph and solver options should hit the rank cache")
	}
	if rep.Entries[0].ID != crawled.Entries[0].ID {
		t.Errorf("top = %s, want %s", rep.Entries[0].ID, crawled.Entries[0].ID)
	}
	if calls != 3 {
		t.Errorf("graph mode should not fetch, calls = %d", calls)
	}

	opts.GraphFile = filepath.Join(t.TempDir(), "missing.json")
	if _, err := r.Execute(context.Background(), opts); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing graph error = %v, want FILE_NOT_FOUND", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts.GraphFile = bad
	if _, err := r.Execute(context.Background(), opts); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bad graph error = %v, want INVALID_FORMAT", err)
	}
}

func TestExecuteCached(t *testing.T) {
	var calls int
	r := newTestRunner(t)
	r.Fetcher = siteFetcher(&calls)
	ctx := context.Background()

	first, err := r.Execute(ctx, crawlOpts())
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Execute(ctx, crawlOpts())
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.GraphHit || !second.CacheInfo.RankHit {
		t.Errorf("cache info = %+v, want both hits", second.CacheInfo)
	}
	if calls != 3 {
		t.Errorf("fetcher called %d times, want 3", calls)
	}
	if rank.MaxDiff(first.Ranks, second.Ranks) != 0 {
		t.Error("cached ranks differ")
	}
	if first.ID == second.ID {
		t.Error("runs share an ID")
	}

	opts := crawlOpts()
	opts.Refresh = true
	third, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheInfo.GraphHit || calls != 6 {
		t.Errorf("refresh: hit=%v calls=%d", third.CacheInfo.GraphHit, calls)
	}
}

func TestExecuteLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.txt")
	data := "# FromNodeId\tToNodeId\n0\t1\n0\t2\n1\t2\n2\t0\n3\t2\n9\t0\nbad line\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := DefaultOptions()
	opts.Mode = ModeLoad
	opts.EdgeFile = path
	opts.MaxNodes = 5
	opts.Matrix = "sparse"
	opts.Verify = true

	rep, err := newTestRunner(t).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if rep.Graph.Nodes != 4 || rep.Graph.Edges != 5 {
		t.Errorf("graph stats = %+v", rep.Graph)
	}
	if rep.Ingest == nil || rep.Ingest.Malformed != 1 || rep.Ingest.Skipped != 1 {
		t.Errorf("ingest stats = %+v", rep.Ingest)
	}
	if rep.Matrix != "sparse" {
		t.Errorf("matrix = %s", rep.Matrix)
	}
	if rep.VerifyMaxDiff == nil || *rep.VerifyMaxDiff > 1e-7 {
		t.Errorf("verify diff = %v", rep.VerifyMaxDiff)
	}
	if rep.Entries[0].ID != "2" {
		t.Errorf("top entry = %+v, want node 2", rep.Entries[0])
	}
	if top := rep.Truncate(2); len(top.Entries) != 2 || len(rep.Entries) != 4 {
		t.Errorf("Truncate: %d entries, original %d", len(top.Entries), len(rep.Entries))
	}
}

func TestExecuteUpload(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = ModeLoad
	opts.EdgeData = []byte("0 1\n1 0\n")

	rep, err := NewRunner(nil, nil, nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Source != "upload" || rep.Graph.Nodes != 2 {
		t.Errorf("report = %+v", rep)
	}
}

func TestExecuteErrors(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		mod  func(*Options)
		code errors.Code
	}{
		{"no mode", func(o *Options) {}, errors.ErrCodeInvalidArguments},
		{"no seeds", func(o *Options) { o.Mode = ModeCrawl }, errors.ErrCodeInvalidArguments},
		{"bad seed", func(o *Options) { o.Mode = ModeCrawl; o.Seeds = []string{"ftp://x"} }, errors.ErrCodeInvalidInput},
		{"no file", func(o *Options) { o.Mode = ModeLoad }, errors.ErrCodeInvalidPath},
		{"missing file", func(o *Options) { o.Mode = ModeLoad; o.EdgeFile = "/nonexistent/edges.txt" }, errors.ErrCodeFileNotFound},
		{"empty graph", func(o *Options) { o.Mode = ModeLoad; o.EdgeData = []byte("# only comments\n") }, errors.ErrCodeEmptyGraph},
		{"bad damping", func(o *Options) { o.Mode = ModeLoad; o.EdgeData = []byte("0 1"); o.Damping = 1.5 }, errors.ErrCodeInvalidArguments},
		{"bad matrix", func(o *Options) { o.Mode = ModeLoad; o.EdgeData = []byte("0 1"); o.Matrix = "coo" }, errors.ErrCodeInvalidArguments},
		{"negative pages", func(o *Options) { o.Mode = ModeCrawl; o.Seeds = []string{site}; o.MaxPages = -1 }, errors.ErrCodeInvalidArguments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mod(&opts)
			_, err := r.Execute(ctx, opts)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestExecuteCanceled(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	r.Fetcher = crawl.FetcherFunc(func(ctx context.Context, _ string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := r.Execute(ctx, crawlOpts()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

type memArchive struct{ saved []*Report }

func (a *memArchive) Save(_ context.Context, r *Report) error {
	a.saved = append(a.saved, r)
	return nil
}

func TestExecuteArchives(t *testing.T) {
	var calls int
	archive := &memArchive{}
	r := NewRunner(nil, nil, nil)
	r.Fetcher = siteFetcher(&calls)
	r.Archive = archive

	rep, err := r.Execute(context.Background(), crawlOpts())
	if err != nil {
		t.Fatal(err)
	}
	if len(archive.saved) != 1 || archive.saved[0].ID != rep.ID {
		t.Errorf("archived %d reports", len(archive.saved))
	}
}

type countingHooks struct {
	observability.NoopPipelineHooks
	mu       sync.Mutex
	acquired int
	solved   int
}

func (h *countingHooks) OnAcquireComplete(context.Context, string, int, int, time.Duration, error) {
	h.mu.Lock()
	h.acquired++
	h.mu.Unlock()
}

func (h *countingHooks) OnSolveComplete(context.Context, int, bool, time.Duration, error) {
	h.mu.Lock()
	h.solved++
	h.mu.Unlock()
}

func TestExecuteFiresHooks(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	var calls int
	r := NewRunner(nil, nil, nil)
	r.Fetcher = siteFetcher(&calls)
	if _, err := r.Execute(context.Background(), crawlOpts()); err != nil {
		t.Fatal(err)
	}
	if hooks.acquired != 1 || hooks.solved != 1 {
		t.Errorf("hooks fired acquire=%d solve=%d", hooks.acquired, hooks.solved)
	}
}

func TestRenderGraph(t *testing.T) {
	var calls int
	r := NewRunner(nil, nil, nil)
	r.Fetcher = siteFetcher(&calls)
	rep, err := r.Execute(context.Background(), crawlOpts())
	if err != nil {
		t.Fatal(err)
	}

	dot, err := RenderGraph(context.Background(), rep, "dot", 2)
	if err != nil {
		t.Fatalf("RenderGraph() error: %v", err)
	}
	if len(dot) == 0 || string(dot[:7]) != "digraph" {
		t.Errorf("unexpected DOT: %s", dot)
	}

	if _, err := RenderGraph(context.Background(), &Report{ID: "x"}, "dot", 0); err == nil {
		t.Error("expected error for report without graph")
	}
}
