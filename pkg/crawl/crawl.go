package crawl

import (
	"context"
	"io"
	"math/rand"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/graph"
	"github.com/matzehuels/linkrank/pkg/index"
)

const (
	DefaultMaxDepth        = 2
	DefaultMaxPages        = 50
	DefaultMaxLinksPerPage = 100
)

// Fetcher returns the outbound links of a page.
type Fetcher interface {
	Fetch(ctx context.Context, id string) ([]string, error)
}

// FetcherFunc adapts a function to [Fetcher].
type FetcherFunc func(ctx context.Context, id string) ([]string, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, id string) ([]string, error) { return f(ctx, id) }

// Page describes one processed page, passed to [Options.OnPage].
type Page struct {
	ID    string
	Depth int
	// Found is the number of links the fetcher returned.
	Found int
	// Kept is the number of links left after sampling.
	Kept int
	// Err is the fetch error, if any. The page is then treated as having no
	// links.
	Err error
}

// Options bounds a crawl.
type Options struct {
	MaxDepth        int // Deepest level fetched; seeds are depth 0
	MaxPages        int // Pages fetched before stopping (>= 1)
	MaxLinksPerPage int // Links kept per page after sampling

	// Rand drives link sampling. When nil a source seeded with Seed is used.
	Rand *rand.Rand
	Seed int64

	Logger *log.Logger
	OnPage func(Page) // Called after each fetched page (optional)
}

// DefaultOptions returns the default crawl bounds.
func DefaultOptions() Options {
	return Options{
		MaxDepth:        DefaultMaxDepth,
		MaxPages:        DefaultMaxPages,
		MaxLinksPerPage: DefaultMaxLinksPerPage,
	}
}

// Validate checks the bounds.
func (o Options) Validate() error {
	if err := errors.ValidateMin("max_depth", o.MaxDepth, 0); err != nil {
		return err
	}
	if err := errors.ValidateMin("max_pages", o.MaxPages, 1); err != nil {
		return err
	}
	return errors.ValidateMin("max_links_per_page", o.MaxLinksPerPage, 0)
}

// Crawl traverses from seeds and returns the recorded graph. Seeds receive
// indices 0..len(seeds)-1 in order (duplicates collapse). The returned
// graph's index is frozen and Visited lists fetched pages in fetch order.
func Crawl(ctx context.Context, seeds []string, f Fetcher, opts Options) (*graph.Graph, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidArguments, "at least one seed is required")
	}
	for _, s := range seeds {
		if s == "" {
			return nil, errors.New(errors.ErrCodeInvalidArguments, "empty seed")
		}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(opts.Seed))
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	c := &crawler{
		ctx:     ctx,
		opts:    opts,
		fetch:   f.Fetch,
		idx:     index.New(len(seeds)),
		visited: make(map[string]bool),
	}
	return c.run(seeds)
}

type crawler struct {
	ctx   context.Context
	opts  Options
	fetch func(context.Context, string) ([]string, error)

	idx     *index.Map
	queue   []job
	visited map[string]bool
	order   []string
	edges   []graph.Edge
}

type job struct {
	id    string
	depth int
}

func (c *crawler) run(seeds []string) (*graph.Graph, error) {
	for _, s := range seeds {
		if _, added := c.idx.Register(s); added {
			c.queue = append(c.queue, job{id: s})
		}
	}

	for len(c.queue) > 0 && len(c.order) < c.opts.MaxPages {
		if err := c.ctx.Err(); err != nil {
			return nil, err
		}
		j := c.queue[0]
		c.queue = c.queue[1:]
		if c.visited[j.id] || j.depth > c.opts.MaxDepth {
			continue
		}
		if err := c.visit(j); err != nil {
			return nil, err
		}
	}

	c.idx.Freeze()
	c.opts.Logger.Debug("crawl finished", "visited", len(c.order), "nodes", c.idx.Len(), "edges", len(c.edges))
	return &graph.Graph{Edges: c.edges, Index: c.idx, Visited: c.order}, nil
}

func (c *crawler) visit(j job) error {
	c.visited[j.id] = true
	c.order = append(c.order, j.id)
	c.opts.Logger.Debug("visiting", "page", j.id, "depth", j.depth)

	page := Page{ID: j.id, Depth: j.depth}
	links, err := c.fetch(c.ctx, j.id)
	if err != nil {
		if ctxErr := c.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		page.Err = errors.Wrap(errors.ErrCodeFetchFailure, err, "fetch %s", j.id)
		c.opts.Logger.Warn("fetch failed", "page", j.id, "err", err)
		links = nil
	}
	page.Found = len(links)
	links = sample(c.opts.Rand, links, c.opts.MaxLinksPerPage)
	page.Kept = len(links)

	from, _ := c.idx.Index(j.id)
	for _, link := range links {
		if !c.visited[link] && len(c.order) < c.opts.MaxPages {
			if _, added := c.idx.Register(link); added {
				c.queue = append(c.queue, job{id: link, depth: j.depth + 1})
			}
		}
		if to, ok := c.idx.Index(link); ok {
			c.edges = append(c.edges, graph.Edge{From: from, To: to})
		}
	}

	if c.opts.OnPage != nil {
		c.opts.OnPage(page)
	}
	return nil
}

// sample returns k links chosen uniformly without replacement, in their
// original order. Slices of length <= k are returned unchanged.
func sample(rng *rand.Rand, links []string, k int) []string {
	if len(links) <= k {
		return links
	}
	perm := make([]int, len(links))
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(perm)-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	chosen := perm[:k]
	slices.Sort(chosen)

	out := make([]string, k)
	for i, p := range chosen {
		out[i] = links[p]
	}
	return out
}
