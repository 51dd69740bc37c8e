package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/captioner/internal/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP caption API",
		Long: `Run the HTTP caption API.

  GET  /healthz
  GET  /v1/profiles
  POST /v1/caption   multipart: image, title, profile, flags, author, format
  POST /v1/inspect   multipart: image

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	srv := server.New(runner, loggerFromContext(ctx), server.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})
	return srv.ListenAndServe(ctx, addr)
}
