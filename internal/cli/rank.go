package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/linkrank/pkg/crawl"
	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/export"
	"github.com/matzehuels/linkrank/pkg/graph"
	"github.com/matzehuels/linkrank/pkg/pipeline"
	"github.com/matzehuels/linkrank/pkg/render"
)

// rankFlags holds the flags shared by crawl and load.
type rankFlags struct {
	output    string
	format    string
	top       int
	graphFile string
	renderTop int
	saveGraph string
}

// crawlCommand creates the crawl command.
func (c *CLI) crawlCommand() *cobra.Command {
	var (
		rf   rankFlags
		opts pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "crawl <url>...",
		Short: "Crawl from seed URLs and rank the pages found",
		Long: `Crawl follows links breadth-first from the seed URLs, sampling at most
--max-links links per page, until --max-depth or --max-pages is reached.
Pages that fail to load are kept with no outgoing links.`,
		Example: `  linkrank crawl https://example.com
  linkrank crawl https://example.com --max-depth 3 --max-pages 200 -o ranks.json`,
		Args: cobra.MinimumNArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			opts = c.mergeOptions(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Mode = pipeline.ModeCrawl
			opts.Seeds = args
			return c.runRank(cmd.Context(), opts, rf)
		},
	}

	opts = c.cfg.PipelineOptions()
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", opts.MaxDepth, "maximum link depth from the seeds")
	cmd.Flags().IntVar(&opts.MaxPages, "max-pages", opts.MaxPages, "maximum number of pages to visit")
	cmd.Flags().IntVar(&opts.MaxLinksPerPage, "max-links", opts.MaxLinksPerPage, "maximum links kept per page after random sampling (0 keeps none)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", opts.Seed, "random seed for link sampling")
	addSolverFlags(cmd, &opts, &rf)

	return cmd
}

// loadCommand creates the load command.
func (c *CLI) loadCommand() *cobra.Command {
	var (
		rf   rankFlags
		opts pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "load <file> [max-nodes] [max-edges]",
		Short: "Rank the nodes of an edge-list file",
		Long: `Load reads whitespace-separated "from to" node pairs, one per line.
Lines starting with # are comments. Edges touching a node id >= max-nodes are
skipped and reading stops after max-edges edges. Lines that do not parse are
skipped and counted.`,
		Example: `  linkrank load web-Google.txt
  linkrank load web-Google.txt 50000 1000000 --verify`,
		Args: cobra.RangeArgs(1, 3),
		PreRun: func(cmd *cobra.Command, args []string) {
			opts = c.mergeOptions(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyLimitArgs(&opts, args[1:]); err != nil {
				return err
			}
			opts.Mode = pipeline.ModeLoad
			opts.EdgeFile = args[0]
			return c.runRank(cmd.Context(), opts, rf)
		},
	}

	opts = c.cfg.PipelineOptions()
	cmd.Flags().IntVar(&opts.MaxNodes, "max-nodes", opts.MaxNodes, "skip edges touching node ids >= this (0 = unlimited)")
	cmd.Flags().IntVar(&opts.MaxEdges, "max-edges", opts.MaxEdges, "stop after this many edges (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "cross-check against the reference implementation")
	addSolverFlags(cmd, &opts, &rf)

	return cmd
}

// graphCommand creates the rank command, which re-ranks a saved graph.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		rf   rankFlags
		opts pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "rank <graph.json>",
		Short: "Rank a graph saved with --save-graph",
		Long: `Rank reads a link graph written by crawl or load with --save-graph and
ranks it again, typically with different solver settings. Nothing is fetched.`,
		Example: `  linkrank crawl https://example.com --save-graph site.json
  linkrank rank site.json --damping 0.7`,
		Args: cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			opts = c.mergeOptions(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Mode = pipeline.ModeGraph
			opts.GraphFile = args[0]
			return c.runRank(cmd.Context(), opts, rf)
		},
	}

	opts = c.cfg.PipelineOptions()
	addSolverFlags(cmd, &opts, &rf)

	return cmd
}

func addSolverFlags(cmd *cobra.Command, opts *pipeline.Options, rf *rankFlags) {
	f := cmd.Flags()
	f.Float64Var(&opts.Damping, "damping", opts.Damping, "damping factor in (0, 1)")
	f.Float64Var(&opts.Tolerance, "tolerance", opts.Tolerance, "stop when the L1 change drops below this")
	f.IntVar(&opts.MaxIterations, "max-iterations", opts.MaxIterations, "power-iteration budget")
	f.IntVar(&opts.Workers, "workers", opts.Workers, "parallel workers for the matrix product")
	f.StringVar(&opts.Matrix, "matrix", opts.Matrix, "matrix layout: auto, dense, sparse")
	f.BoolVar(&opts.Refresh, "refresh", false, "ignore cached graphs and rankings")

	f.StringVarP(&rf.output, "output", "o", export.DefaultFile, "results file")
	f.StringVar(&rf.format, "format", "", "results format: csv, json, yaml (default from --output extension)")
	f.IntVar(&rf.top, "top", 10, "rows shown in the summary table (0 = none)")
	f.StringVar(&rf.graphFile, "graph", "", "also draw the graph to this .svg, .png or .dot file")
	f.IntVar(&rf.renderTop, "graph-top", pipeline.DefaultRenderTop, "nodes drawn with --graph (-1 = all)")
	f.StringVar(&rf.saveGraph, "save-graph", "", "save the link graph as JSON for later 'linkrank rank' runs")
}

// mergeOptions re-seeds flags the user did not set from the loaded config.
// Flag defaults are bound before the config file is read.
func (c *CLI) mergeOptions(cmd *cobra.Command, opts pipeline.Options) pipeline.Options {
	base := c.cfg.PipelineOptions()
	unset := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && !f.Changed
	}
	if unset("max-depth") {
		opts.MaxDepth = base.MaxDepth
	}
	if unset("max-pages") {
		opts.MaxPages = base.MaxPages
	}
	if unset("max-links") {
		opts.MaxLinksPerPage = base.MaxLinksPerPage
	}
	if unset("seed") {
		opts.Seed = base.Seed
	}
	if unset("max-nodes") {
		opts.MaxNodes = base.MaxNodes
	}
	if unset("max-edges") {
		opts.MaxEdges = base.MaxEdges
	}
	if unset("damping") {
		opts.Damping = base.Damping
	}
	if unset("tolerance") {
		opts.Tolerance = base.Tolerance
	}
	if unset("max-iterations") {
		opts.MaxIterations = base.MaxIterations
	}
	if unset("workers") {
		opts.Workers = base.Workers
	}
	if unset("matrix") {
		opts.Matrix = base.Matrix
	}
	return opts
}

// applyLimitArgs applies the optional positional max-nodes and max-edges.
func applyLimitArgs(opts *pipeline.Options, args []string) error {
	targets := []struct {
		name string
		dst  *int
	}{
		{"max-nodes", &opts.MaxNodes},
		{"max-edges", &opts.MaxEdges},
	}
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return errors.New(errors.ErrCodeInvalidArguments, "%s must be a non-negative integer, got %q", targets[i].name, arg)
		}
		*targets[i].dst = n
	}
	return nil
}

// runRank executes one pipeline run and writes its outputs.
func (c *CLI) runRank(ctx context.Context, opts pipeline.Options, rf rankFlags) error {
	format, err := resolveFormat(rf)
	if err != nil {
		return err
	}
	var graphFormat render.Format
	if rf.graphFile != "" {
		if graphFormat, err = render.ParseFormat(render.FormatFromPath(rf.graphFile)); err != nil {
			return err
		}
	}

	// Validate before opening caches or touching the network.
	opts.Logger = c.Logger
	check := opts
	check.SetDefaults()
	if err := check.Validate(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, startMessage(opts))
	if opts.Mode == pipeline.ModeCrawl {
		visited := 0
		opts.OnPage = func(p crawl.Page) {
			visited++
			spinner.SetMessage(fmt.Sprintf("Crawling %s (%d pages)", p.ID, visited))
		}
	}
	spinner.Start()

	prog := newProgress(c.Logger)
	rep, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Run failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Ranked %d nodes", rep.Graph.Nodes))

	if err := export.WriteFile(rf.output, format, rep.Entries, exportDoc(format, rep)); err != nil {
		return err
	}

	if rf.saveGraph != "" {
		if err := graph.WriteFile(rep.GraphValue, rf.saveGraph); err != nil {
			return err
		}
	}

	var graphPath string
	if rf.graphFile != "" {
		data, err := pipeline.RenderGraph(ctx, rep, graphFormat, rf.renderTop)
		if err != nil {
			return err
		}
		if err := os.WriteFile(rf.graphFile, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", rf.graphFile, err)
		}
		graphPath = rf.graphFile
	}

	printReport(rep, rf.top)
	printNewline()
	printFile(rf.output)
	if graphPath != "" {
		printFile(graphPath)
	}
	if rf.saveGraph != "" {
		printFile(rf.saveGraph)
	}
	return nil
}

// resolveFormat picks the results format from --format or the file name.
func resolveFormat(rf rankFlags) (export.Format, error) {
	if rf.format != "" {
		return export.ParseFormat(rf.format)
	}
	return export.FormatFromPath(rf.output), nil
}

// exportDoc is the document written for structured formats. CSV files only
// carry the ranking.
func exportDoc(f export.Format, rep *pipeline.Report) any {
	if f == export.CSV {
		return nil
	}
	return rep
}

func startMessage(opts pipeline.Options) string {
	switch opts.Mode {
	case pipeline.ModeCrawl:
		return fmt.Sprintf("Crawling %d seed(s)...", len(opts.Seeds))
	case pipeline.ModeGraph:
		return fmt.Sprintf("Ranking %s...", opts.GraphFile)
	}
	return fmt.Sprintf("Loading %s...", opts.EdgeFile)
}

// printReport prints the run summary and the top of the ranking.
func printReport(rep *pipeline.Report, top int) {
	printSuccess("Ranked %s nodes", StyleNumber.Render(strconv.Itoa(rep.Graph.Nodes)))
	printStats(rep.Graph.Nodes, rep.Graph.Edges, rep.CacheInfo.GraphHit)
	if rep.Ingest != nil && (rep.Ingest.Malformed > 0 || rep.Ingest.Truncated) {
		printDetail("%d malformed lines skipped, truncated: %t", rep.Ingest.Malformed, rep.Ingest.Truncated)
	}

	printNewline()
	printKeyValue("Matrix", rep.Matrix)
	printKeyValue("Iterations", strconv.Itoa(rep.Iterations))
	printKeyValue("Delta", strconv.FormatFloat(rep.Delta, 'e', 3, 64))
	printKeyValue("Dangling", strconv.FormatFloat(rep.DanglingMass, 'f', 4, 64))
	printKeyValue("Time", rep.Timings.Total.Round(time.Millisecond).String())
	if rep.VerifyMaxDiff != nil {
		printKeyValue("Verify", "max diff "+strconv.FormatFloat(*rep.VerifyMaxDiff, 'e', 3, 64))
	}
	if !rep.Converged {
		printWarning("Did not converge within %d iterations", rep.Iterations)
	}

	if top > 0 && len(rep.Entries) > 0 {
		printNewline()
		fmt.Println(renderRanking(rep.Entries, top))
	}
}
