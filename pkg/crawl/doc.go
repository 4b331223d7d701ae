// Package crawl builds a link graph by breadth-first traversal from a set of
// seed pages.
//
// The traversal is bounded three ways: pages deeper than MaxDepth are not
// fetched, at most MaxPages pages are fetched, and a page with more than
// MaxLinksPerPage links contributes a uniform random sample of that many.
// Fetches run one at a time in queue order.
//
// Every surviving link of a fetched page becomes an edge as long as its
// target has an index, including links back to pages already visited or
// queued. Once the page budget is used up no new pages are registered, so
// links to them are dropped.
//
// A page whose fetch fails is kept as a visited node without outgoing
// links; the crawl itself only fails on invalid options or context
// cancellation.
//
//	g, err := crawl.Crawl(ctx, []string{"https://example.com/"}, fetcher, crawl.Options{
//	    MaxDepth:        2,
//	    MaxPages:        50,
//	    MaxLinksPerPage: 100,
//	    Rand:            rand.New(rand.NewSource(1)),
//	})
package crawl
