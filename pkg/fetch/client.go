package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/linkrank/pkg/buildinfo"
	"github.com/matzehuels/linkrank/pkg/cache"
	"github.com/matzehuels/linkrank/pkg/httputil"
	"github.com/matzehuels/linkrank/pkg/observability"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 5 << 20
)

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("page not found")

	// ErrNetwork is returned for transport failures and unexpected status
	// codes.
	ErrNetwork = errors.New("network error")
)

// Options configures a [Client].
type Options struct {
	Cache        cache.Cache // Link cache (nil disables caching)
	Keyer        cache.Keyer // Key scheme (DefaultKeyer when nil)
	TTL          time.Duration
	Refresh      bool // Ignore cached entries but still store fresh ones
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
	Retry        *httputil.Policy
	Logger       *log.Logger
}

// Client fetches pages and extracts their links.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	refresh bool
	maxBody int64
	agent   string
	retry   httputil.Policy
	logger  *log.Logger
}

// New creates a Client with defaults for every unset option.
func New(opts Options) *Client {
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.TTL == 0 {
		opts.TTL = cache.TTLLinks
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "linkrank/" + buildinfo.Version
	}
	if opts.Retry == nil {
		opts.Retry = &httputil.DefaultPolicy
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		cache:   opts.Cache,
		keyer:   opts.Keyer,
		ttl:     opts.TTL,
		refresh: opts.Refresh,
		maxBody: opts.MaxBodyBytes,
		agent:   opts.UserAgent,
		retry:   *opts.Retry,
		logger:  opts.Logger,
	}
}

// Fetch returns the links found on pageURL.
func (c *Client) Fetch(ctx context.Context, pageURL string) ([]string, error) {
	key := c.keyer.LinksKey(pageURL)
	if !c.refresh {
		if data, ok, _ := c.cache.Get(ctx, key); ok {
			var links []string
			if err := json.Unmarshal(data, &links); err == nil {
				observability.Cache().OnCacheHit(ctx, "links")
				c.logger.Debug("links cache hit", "page", pageURL, "links", len(links))
				return links, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "links")
	}

	var links []string
	err := c.retry.Do(ctx, func() error {
		var err error
		links, err = c.get(ctx, pageURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(links); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Debug("links cache write failed", "page", pageURL, "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "links", len(data))
		}
	}
	return links, nil
}

func (c *Client) get(ctx context.Context, pageURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.agent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	if !isHTML(resp.Header.Get("Content-Type")) {
		return nil, nil
	}

	base := resp.Request.URL
	if base == nil {
		base, _ = url.Parse(pageURL)
	}
	links, err := ExtractLinks(base, io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, httputil.Retryable(fmt.Errorf("%w: read body: %v", ErrNetwork, err))
	}
	return links, nil
}

func checkStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return httputil.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "html")
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}
