package cache

// ScopedKeyer prefixes every key of an inner Keyer. The HTTP server uses it
// to keep API results apart from CLI runs sharing the same backend.
//
//	k := cache.NewScopedKeyer(nil, "api:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner (DefaultKeyer when nil).
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) LinksKey(url string) string {
	return k.prefix + k.inner.LinksKey(url)
}

func (k *ScopedKeyer) CrawlKey(seeds []string, opts CrawlKeyOpts) string {
	return k.prefix + k.inner.CrawlKey(seeds, opts)
}

func (k *ScopedKeyer) EdgeListKey(contentHash string, opts EdgeListKeyOpts) string {
	return k.prefix + k.inner.EdgeListKey(contentHash, opts)
}

func (k *ScopedKeyer) RankKey(graphHash string, opts RankKeyOpts) string {
	return k.prefix + k.inner.RankKey(graphHash, opts)
}
