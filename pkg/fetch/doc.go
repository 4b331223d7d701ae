// Package fetch retrieves web pages over HTTP and extracts their outbound
// links. [Client] implements crawl.Fetcher.
//
// Only <a href> targets are collected. Relative references are resolved
// against the final page URL (after redirects, honoring <base href>),
// fragments are dropped, and anything that is not http or https is
// ignored. Duplicate links are kept because the ranking counts them.
//
// Network errors, 429 and 5xx responses are retried with backoff; 404 and
// other client errors are not. Link lists are cached per URL through a
// cache.Cache.
package fetch
