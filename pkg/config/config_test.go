package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/linkrank/pkg/cache"
	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/store"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv(EnvCacheBackend, "")
	t.Setenv(EnvRedisURL, "")
	t.Setenv(EnvMongoURI, "")
	return dir
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Crawl.MaxPages != 50 || cfg.Load.MaxEdges != 2552519 || cfg.Solver.Damping != 0.85 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if want := filepath.Join(dir, "cache", "linkrank"); cfg.Cache.Dir != want {
		t.Errorf("cache dir = %q, want %q", cfg.Cache.Dir, want)
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "linkrank.toml")
	data := `
[crawl]
max_pages = 10

[solver]
damping = 0.9
matrix = "sparse"

[server]
addr = ":9090"
timeout = "30s"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Crawl.MaxPages != 10 || cfg.Crawl.MaxDepth != 2 {
		t.Errorf("crawl = %+v", cfg.Crawl)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.Timeout != 30*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}

	opts := cfg.PipelineOptions()
	if opts.Damping != 0.9 || opts.Matrix != "sparse" || opts.MaxPages != 10 {
		t.Errorf("pipeline options = %+v", opts)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.toml")
	os.WriteFile(path, []byte("[solver]\ndampening = 0.9\n"), 0o644)

	_, err := Load(path)
	if !errors.Is(err, errors.ErrCodeInvalidFormat) || !strings.Contains(err.Error(), "dampening") {
		t.Errorf("err = %v", err)
	}

	os.WriteFile(path, []byte("[solver\n"), 0o644)
	if _, err := Load(path); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("syntax err = %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvCacheBackend, "redis")
	t.Setenv(EnvRedisURL, "redis://cache:6379/1")
	t.Setenv(EnvMongoURI, "mongodb://db:27017")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisURL != "redis://cache:6379/1" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Store.MongoURI != "mongodb://db:27017" {
		t.Errorf("store = %+v", cfg.Store)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := isolate(t)
	path, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(path, dir) {
		t.Fatalf("Path() = %q, not under %q", path, dir)
	}

	cfg := Default()
	cfg.Solver.Workers = 4
	if err := cfg.Write(path, false); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := cfg.Write(path, false); !errors.Is(err, errors.ErrCodeInvalidArguments) {
		t.Errorf("second Write() err = %v, want refusal", err)
	}
	if err := cfg.Write(path, true); err != nil {
		t.Errorf("forced Write() error: %v", err)
	}

	got, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if got.Solver.Workers != 4 || got.Server.Timeout != cfg.Server.Timeout {
		t.Errorf("round trip lost values: %+v", got)
	}
}

func TestOpenBackends(t *testing.T) {
	isolate(t)
	cfg := Default()
	ctx := context.Background()

	c, err := cfg.OpenCache(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("disabled cache = %T", c)
	}

	c, err = cfg.OpenCache(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("default cache = %T", c)
	}

	s, err := cfg.OpenStore(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*store.Memory); !ok {
		t.Errorf("default store = %T", s)
	}

	cfg.Store.Backend = "sqlite"
	if _, err := cfg.OpenStore(ctx); !errors.Is(err, errors.ErrCodeInvalidArguments) {
		t.Errorf("unknown store err = %v", err)
	}
}
