package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/matzehuels/linkrank/pkg/cache"
	"github.com/matzehuels/linkrank/pkg/observability"
	"github.com/matzehuels/linkrank/pkg/pipeline"
	"github.com/matzehuels/linkrank/pkg/server"
)

// apiKeyPrefix keeps server cache entries apart from CLI runs sharing the
// same backend.
const apiKeyPrefix = "api:"

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		allowCrawl bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rankings over HTTP",
		Long: `Serve starts the HTTP API. POST an edge list to /v1/rank to rank it;
reports are archived in the configured store and listed under /v1/runs.`,
		Example: `  linkrank serve --addr :9000
  curl --data-binary @web-Google.txt 'localhost:9000/v1/rank?max_nodes=5000&top=10'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.cfg.Server
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("allow-crawl") {
				cfg.AllowCrawl = allowCrawl
			}

			hooks, err := observability.NewOTelHooks(otel.Meter(appName))
			if err != nil {
				return err
			}
			observability.SetPipelineHooks(hooks)
			observability.SetCacheHooks(hooks)
			observability.SetHTTPHooks(hooks)
			defer observability.Reset()

			runner, err := c.newAPIRunner(ctx)
			if err != nil {
				return err
			}
			defer runner.Close()

			st, err := c.cfg.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			printInfo("Listening on %s", StyleHighlight.Render(cfg.Addr))
			printDetail("cache: %s, store: %s", c.cacheBackend(), c.cfg.Store.Backend)
			return server.New(runner, st, c.Logger, cfg).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().BoolVar(&allowCrawl, "allow-crawl", false, "accept crawl requests (the server will fetch arbitrary URLs)")

	return cmd
}

// newAPIRunner creates a runner whose cache keys carry apiKeyPrefix.
func (c *CLI) newAPIRunner(ctx context.Context) (*pipeline.Runner, error) {
	runner, err := c.newRunner(ctx)
	if err != nil {
		return nil, err
	}
	runner.Keyer = cache.NewScopedKeyer(runner.Keyer, apiKeyPrefix)
	return runner, nil
}

func (c *CLI) cacheBackend() string {
	if c.noCache {
		return "none"
	}
	if c.cfg.Cache.Backend == "" {
		return "file"
	}
	return c.cfg.Cache.Backend
}
