// Package config loads linkrank settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/linkrank/config.toml (or
// ~/.config/linkrank/config.toml). A missing file is not an error: every
// field has a default, see [Default]. Environment variables override the
// file for deployment secrets:
//
//	LINKRANK_CACHE_BACKEND  cache.backend
//	LINKRANK_REDIS_URL      cache.redis_url
//	LINKRANK_MONGO_URI      cache.mongo_uri and store.mongo_uri
//
// Command-line flags override both.
package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/linkrank/pkg/cache"
	"github.com/matzehuels/linkrank/pkg/crawl"
	"github.com/matzehuels/linkrank/pkg/edgelist"
	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/matrix"
	"github.com/matzehuels/linkrank/pkg/pipeline"
	"github.com/matzehuels/linkrank/pkg/rank"
	"github.com/matzehuels/linkrank/pkg/server"
	"github.com/matzehuels/linkrank/pkg/store"
)

const appName = "linkrank"

// Environment overrides.
const (
	EnvCacheBackend = "LINKRANK_CACHE_BACKEND"
	EnvRedisURL     = "LINKRANK_REDIS_URL"
	EnvMongoURI     = "LINKRANK_MONGO_URI"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Config is the file layout.
type Config struct {
	Crawl  Crawl         `toml:"crawl"`
	Load   LoadDefaults  `toml:"load"`
	Solver Solver        `toml:"solver"`
	Cache  cache.Config  `toml:"cache"`
	Server server.Config `toml:"server"`
	Store  Store         `toml:"store"`
}

// Crawl holds crawl-mode defaults.
type Crawl struct {
	MaxDepth        int   `toml:"max_depth"`
	MaxPages        int   `toml:"max_pages"`
	MaxLinksPerPage int   `toml:"max_links_per_page"`
	Seed            int64 `toml:"seed"`
}

// LoadDefaults holds edge-list defaults.
type LoadDefaults struct {
	MaxNodes int `toml:"max_nodes"`
	MaxEdges int `toml:"max_edges"`
}

// Solver holds power-iteration defaults.
type Solver struct {
	MaxIterations int     `toml:"max_iterations"`
	Damping       float64 `toml:"damping"`
	Tolerance     float64 `toml:"tolerance"`
	Workers       int     `toml:"workers"`
	Matrix        string  `toml:"matrix"`
}

// Store selects where the server archives reports.
type Store struct {
	Backend    string `toml:"backend"`
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Capacity   int    `toml:"capacity"`
	MaxEntries int    `toml:"max_entries"`
}

// Default returns the built-in configuration.
func Default() Config {
	dir, _ := CacheDir()
	return Config{
		Crawl: Crawl{
			MaxDepth:        crawl.DefaultMaxDepth,
			MaxPages:        crawl.DefaultMaxPages,
			MaxLinksPerPage: crawl.DefaultMaxLinksPerPage,
		},
		Load: LoadDefaults{
			MaxNodes: edgelist.DefaultMaxNodes,
			MaxEdges: edgelist.DefaultMaxEdges,
		},
		Solver: Solver{
			MaxIterations: rank.DefaultMaxIterations,
			Damping:       rank.DefaultDamping,
			Tolerance:     rank.DefaultTolerance,
			Workers:       1,
			Matrix:        matrix.Auto.String(),
		},
		Cache: cache.Config{
			Backend:  cache.BackendFile,
			Dir:      dir,
			Database: appName,
		},
		Server: server.Config{
			Addr:         server.DefaultAddr,
			Timeout:      server.DefaultTimeout,
			MaxBodyBytes: server.DefaultMaxBodyBytes,
			DefaultTop:   server.DefaultTop,
		},
		Store: Store{
			Backend:    StoreMemory,
			Database:   appName,
			Capacity:   store.DefaultCapacity,
			MaxEntries: store.DefaultMaxEntries,
		},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir returns the file cache directory using XDG standard
// (~/.cache/linkrank/).
func CacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads path over the defaults and applies environment overrides. An
// empty path means [Path]; a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := Path()
		if err != nil {
			cfg.applyEnv()
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, errors.Wrap(errors.ErrCodeInvalidFormat, err, "config %s", path)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, errors.New(errors.ErrCodeInvalidFormat, "config %s: unknown key %q", path, undecoded[0].String())
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvCacheBackend); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Cache.RedisURL = v
	}
	if v := os.Getenv(EnvMongoURI); v != "" {
		c.Cache.MongoURI = v
		c.Store.MongoURI = v
	}
}

// Encode renders c as TOML.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Write saves c to path, creating parent directories. It refuses to
// overwrite an existing file unless force is set.
func (c Config) Write(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrCodeInvalidArguments, "%s already exists", path)
		}
	}
	data, err := c.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// PipelineOptions returns run options seeded from the file. Mode and
// sources are left for the caller.
func (c Config) PipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.MaxDepth = c.Crawl.MaxDepth
	opts.MaxPages = c.Crawl.MaxPages
	opts.MaxLinksPerPage = c.Crawl.MaxLinksPerPage
	opts.Seed = c.Crawl.Seed
	opts.MaxNodes = c.Load.MaxNodes
	opts.MaxEdges = c.Load.MaxEdges
	opts.MaxIterations = c.Solver.MaxIterations
	opts.Damping = c.Solver.Damping
	opts.Tolerance = c.Solver.Tolerance
	opts.Workers = c.Solver.Workers
	opts.Matrix = c.Solver.Matrix
	return opts
}

// OpenCache opens the configured cache backend, or a NullCache when
// disabled is set.
func (c Config) OpenCache(ctx context.Context, disabled bool) (cache.Cache, error) {
	if disabled {
		return cache.NewNullCache(), nil
	}
	return cache.Open(ctx, c.Cache)
}

// OpenStore opens the configured report store.
func (c Config) OpenStore(ctx context.Context) (store.Store, error) {
	opts := store.Options{MaxEntries: c.Store.MaxEntries}
	switch c.Store.Backend {
	case "", StoreMemory:
		return store.NewMemory(c.Store.Capacity, opts), nil
	case StoreMongo:
		return store.NewMongo(ctx, store.MongoOptions{
			URI:      c.Store.MongoURI,
			Database: c.Store.Database,
			Options:  opts,
		})
	}
	return nil, errors.New(errors.ErrCodeInvalidArguments, "unknown store backend %q (memory, mongo)", c.Store.Backend)
}
