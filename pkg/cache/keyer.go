package cache

import (
	"slices"
)

// Keyer derives cache keys for each artifact kind.
type Keyer interface {
	// LinksKey identifies the extracted links of one page.
	LinksKey(url string) string
	// CrawlKey identifies a crawled graph.
	CrawlKey(seeds []string, opts CrawlKeyOpts) string
	// EdgeListKey identifies an ingested edge list by content hash.
	EdgeListKey(contentHash string, opts EdgeListKeyOpts) string
	// RankKey identifies a ranking of a graph.
	RankKey(graphHash string, opts RankKeyOpts) string
}

// CrawlKeyOpts holds the crawl parameters that change the resulting graph.
type CrawlKeyOpts struct {
	MaxDepth        int   `json:"max_depth"`
	MaxPages        int   `json:"max_pages"`
	MaxLinksPerPage int   `json:"max_links_per_page"`
	Seed            int64 `json:"seed"`
}

// EdgeListKeyOpts holds the ingestion bounds.
type EdgeListKeyOpts struct {
	MaxNodes int `json:"max_nodes"`
	MaxEdges int `json:"max_edges"`
}

// RankKeyOpts holds the solver parameters that change the result.
type RankKeyOpts struct {
	MaxIterations int     `json:"max_iterations"`
	Damping       float64 `json:"damping"`
	Tolerance     float64 `json:"tolerance"`
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) LinksKey(url string) string {
	return "links:" + url
}

// CrawlKey is independent of seed order.
func (DefaultKeyer) CrawlKey(seeds []string, opts CrawlKeyOpts) string {
	sorted := slices.Clone(seeds)
	slices.Sort(sorted)
	return hashKey("crawl", sorted, opts)
}

func (DefaultKeyer) EdgeListKey(contentHash string, opts EdgeListKeyOpts) string {
	return hashKey("edges", contentHash, opts)
}

func (DefaultKeyer) RankKey(graphHash string, opts RankKeyOpts) string {
	return hashKey("rank", graphHash, opts)
}

var _ Keyer = DefaultKeyer{}
