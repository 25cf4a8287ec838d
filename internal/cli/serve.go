package cli

import (
	"github.com/spf13/cobra"

	"github.com/FaYMan2/terdel/pkg/server"
)

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		src     sourceFlags
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the schema and diagram API over HTTP",
		Long: `Serve the terdel HTTP API.

The server answers the browser editor's schema, data and insert requests
and builds diagrams on demand. It listens on $PORT when set, :8080
otherwise, and shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			backend, label, err := c.openBackend(ctx, src)
			if err != nil {
				return err
			}
			defer backend.Close()

			runner, err := c.newRunner(ctx, backend, label, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			opts := server.Options{
				Addr:            c.cfg.Server.Addr,
				AllowedOrigins:  c.cfg.Server.AllowedOrigins,
				ReadTimeout:     c.cfg.Server.ReadTimeout,
				WriteTimeout:    c.cfg.Server.WriteTimeout,
				ShutdownTimeout: c.cfg.Server.ShutdownTimeout,
				DataLimit:       c.cfg.Server.DataLimit,
				Pipeline:        c.pipelineOptions(src, 0, 0),
			}
			if addr != "" {
				opts.Addr = addr
			}

			printKeyValue("Source", label)
			if version, err := backend.Version(ctx); err == nil {
				printKeyValue("Server", version)
			} else {
				c.Logger.Warn("version query failed", "err", err)
			}
			backendName := c.cfg.Cache.Backend
			if noCache {
				backendName = "none"
			}
			printKeyValue("Cache", backendName)
			printInfo("Listening on %s", StyleLink.Render("http://"+displayAddr(opts.Addr)))
			return server.New(backend, runner, c.Logger, opts).ListenAndServe(ctx)
		},
	}

	src.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: :$PORT or :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the diagram cache")

	return cmd
}

// displayAddr turns ":8080" into "localhost:8080".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
