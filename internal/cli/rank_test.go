package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/export"
	"github.com/matzehuels/linkrank/pkg/graph"
	"github.com/matzehuels/linkrank/pkg/pipeline"
	"github.com/matzehuels/linkrank/pkg/rank"
)

func TestApplyLimitArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantNodes int
		wantEdges int
		wantErr   bool
	}{
		{"none", nil, 100, 200, false},
		{"nodes only", []string{"5"}, 5, 200, false},
		{"both", []string{"5", "7"}, 5, 7, false},
		{"zero means unlimited", []string{"0", "0"}, 0, 0, false},
		{"not a number", []string{"five"}, 0, 0, true},
		{"negative", []string{"5", "-1"}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := pipeline.Options{MaxNodes: 100, MaxEdges: 200}
			err := applyLimitArgs(&opts, tt.args)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidArguments) {
					t.Fatalf("applyLimitArgs(%v) error = %v, want INVALID_ARGUMENTS", tt.args, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("applyLimitArgs(%v) error: %v", tt.args, err)
			}
			if opts.MaxNodes != tt.wantNodes || opts.MaxEdges != tt.wantEdges {
				t.Errorf("limits = (%d, %d), want (%d, %d)", opts.MaxNodes, opts.MaxEdges, tt.wantNodes, tt.wantEdges)
			}
		})
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		rf   rankFlags
		want export.Format
	}{
		{rankFlags{output: "pagerank_results.csv"}, export.CSV},
		{rankFlags{output: "ranks.json"}, export.JSON},
		{rankFlags{output: "ranks.txt"}, export.CSV},
		{rankFlags{output: "ranks.txt", format: "yaml"}, export.YAML},
	}
	for _, tt := range tests {
		got, err := resolveFormat(tt.rf)
		if err != nil || got != tt.want {
			t.Errorf("resolveFormat(%+v) = (%q, %v), want %q", tt.rf, got, err, tt.want)
		}
	}
	if _, err := resolveFormat(rankFlags{format: "xml"}); err == nil {
		t.Error("resolveFormat(xml) should fail")
	}
}

func TestRenderRanking(t *testing.T) {
	entries := []rank.Entry{
		{Index: 2, Score: 0.5, ID: "https://a.test/"},
		{Index: 0, Score: 0.3, ID: "https://b.test/" + strings.Repeat("x", 100)},
		{Index: 1, Score: 0.2, ID: "https://c.test/"},
	}

	out := renderRanking(entries, 2)
	for _, want := range []string{"PageRank", "0.500000", "https://a.test/", "… ", "1 more"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderRanking() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "https://c.test/") {
		t.Error("renderRanking() should stop at k rows")
	}
}

func TestTruncateName(t *testing.T) {
	if got := truncateName("short", 10); got != "short" {
		t.Errorf("truncateName(short) = %q", got)
	}
	if got := truncateName("abcdefghij", 5); got != "abcd…" {
		t.Errorf("truncateName() = %q, want abcd…", got)
	}
}

func newTestCLI() *CLI {
	return New(io.Discard, log.InfoLevel)
}

func TestLoadCommand(t *testing.T) {
	dir := t.TempDir()
	edges := filepath.Join(dir, "edges.txt")
	data := "# test graph\n0 1\n1 2\n2 0\n3 2\n9 0\n"
	if err := os.WriteFile(edges, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "ranks.csv")

	c := newTestCLI()
	root := c.RootCommand()
	root.SetArgs([]string{
		"load", edges, "5",
		"--config", filepath.Join(dir, "missing.toml"),
		"--no-cache",
		"-o", out,
		"--top", "0",
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("load error: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// Header plus nodes 0..3; the edge touching node 9 is skipped.
	if len(records) != 5 {
		t.Fatalf("got %d rows, want 5: %v", len(records), records)
	}
	if strings.Join(records[0], ",") != "Index,PageRank,Name" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][2] != "2" {
		t.Errorf("top node = %s, want 2", records[1][2])
	}
}

func TestLoadCommandErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "missing.toml")

	tests := []struct {
		name string
		args []string
	}{
		{"missing file argument", []string{"load"}},
		{"too many arguments", []string{"load", "a", "1", "2", "3"}},
		{"bad max nodes", []string{"load", "edges.txt", "many"}},
		{"missing file", []string{"load", filepath.Join(dir, "nope.txt")}},
		{"bad damping", []string{"load", "edges.txt", "--damping", "1.5"}},
		{"crawl without seeds", []string{"crawl"}},
		{"bad output format", []string{"load", "edges.txt", "--format", "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newTestCLI().RootCommand()
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			root.SetArgs(append(tt.args, "--config", cfg, "--no-cache", "-o", filepath.Join(dir, "out.csv")))
			if err := root.ExecuteContext(context.Background()); err == nil {
				t.Errorf("%v should fail", tt.args)
			}
			if _, err := os.Stat(filepath.Join(dir, "out.csv")); err == nil {
				t.Error("no results file should be written on invalid arguments")
			}
		})
	}
}

func TestConfigFileSeedsFlags(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfg, []byte("[solver]\ndamping = 0.5\nmax_iterations = 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newTestCLI()
	root := c.RootCommand()
	root.SetArgs([]string{"config", "show", "--config", cfg})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config show error: %v", err)
	}
	if c.cfg.Solver.Damping != 0.5 || c.cfg.Solver.MaxIterations != 7 {
		t.Fatalf("config not loaded: %+v", c.cfg.Solver)
	}

	cmd := c.loadCommand()
	if err := cmd.Flags().Parse([]string{"--tolerance", "1e-3"}); err != nil {
		t.Fatal(err)
	}
	opts := c.mergeOptions(cmd, pipeline.Options{Tolerance: 1e-3})
	if opts.Damping != 0.5 || opts.MaxIterations != 7 {
		t.Errorf("unset flags should come from the config, got damping=%v iterations=%d", opts.Damping, opts.MaxIterations)
	}
	if opts.Tolerance != 1e-3 {
		t.Errorf("set flag overridden: tolerance=%v", opts.Tolerance)
	}
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linkrank", "config.toml")

	run := func(args ...string) error {
		root := newTestCLI().RootCommand()
		root.SetArgs(append([]string{"config", "init", "--config", path}, args...))
		return root.ExecuteContext(context.Background())
	}
	if err := run(); err != nil {
		t.Fatalf("config init error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if err := run(); err == nil {
		t.Error("second config init without --force should fail")
	}
	if err := run("--force"); err != nil {
		t.Errorf("config init --force error: %v", err)
	}
}

func TestMaxLinksHelp(t *testing.T) {
	f := newTestCLI().crawlCommand().Flags().Lookup("max-links")
	if f == nil {
		t.Fatal("crawl has no --max-links flag")
	}
	if !strings.Contains(f.Usage, "0 keeps none") || strings.Contains(f.Usage, "0 = all") {
		t.Errorf("--max-links usage = %q, want zero documented as keeping no links", f.Usage)
	}
}

func TestSaveGraphAndRank(t *testing.T) {
	dir := t.TempDir()
	edges := filepath.Join(dir, "edges.txt")
	if err := os.WriteFile(edges, []byte("0 1\n1 2\n2 0\n3 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(dir, "missing.toml")
	saved := filepath.Join(dir, "graph.json")

	run := func(args ...string) error {
		root := newTestCLI().RootCommand()
		root.SetArgs(append(args, "--config", cfg, "--no-cache", "--top", "0"))
		return root.ExecuteContext(context.Background())
	}
	if err := run("load", edges, "-o", filepath.Join(dir, "first.csv"), "--save-graph", saved); err != nil {
		t.Fatalf("load error: %v", err)
	}
	g, err := graph.ReadFile(saved)
	if err != nil {
		t.Fatalf("saved graph unreadable: %v", err)
	}
	if g.N() != 4 || len(g.Edges) != 4 {
		t.Errorf("saved graph has %d nodes and %d edges, want 4 and 4", g.N(), len(g.Edges))
	}

	out := filepath.Join(dir, "again.json")
	if err := run("rank", saved, "-o", out); err != nil {
		t.Fatalf("rank error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var rep pipeline.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		t.Fatalf("report not JSON: %v", err)
	}
	if rep.Mode != pipeline.ModeGraph || rep.Graph.Nodes != 4 || rep.Entries[0].ID != "2" {
		t.Errorf("report = mode %s, %d nodes, top %+v", rep.Mode, rep.Graph.Nodes, rep.Entries[0])
	}

	if err := run("rank", filepath.Join(dir, "nope.json")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("rank on a missing file error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestAPIRunnerScopesKeys(t *testing.T) {
	c := newTestCLI()
	c.noCache = true
	runner, err := c.newAPIRunner(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer runner.Close()

	opts := pipeline.DefaultOptions()
	for _, key := range []string{
		runner.Keyer.LinksKey("https://a.test/"),
		runner.Keyer.EdgeListKey("abc", opts.EdgeListKeyOpts()),
		runner.Keyer.RankKey("abc", opts.RankKeyOpts()),
	} {
		if !strings.HasPrefix(key, apiKeyPrefix) {
			t.Errorf("key %q lacks %q prefix", key, apiKeyPrefix)
		}
	}
}
