package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/unobtrusive/internal/config"
	"github.com/conneroisu/unobtrusive/internal/devserver"
	"github.com/conneroisu/unobtrusive/internal/manifest"
)

var serveFlags *StandardFlags

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the preview server with hot reload",
	Long: `Start a preview server for the manifest components. Template edits are
recompiled and pushed to open browsers; manifest edits reload the page.

Endpoints:
  /                       Preview page
  /ws                     Hot update websocket
  /api/components         Component list (JSON)
  /api/components/{name}  Compiled template (JSON)
  /metrics                Prometheus metrics

Examples:
  unobtrusive serve                  # Serve on localhost:8080
  unobtrusive serve -p 3000          # Serve on another port
  unobtrusive serve --no-hot-reload  # Serve without watching files`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveFlags = AddStandardFlags(serveCmd, "server")
	bindFlags(serveCmd.Flags(), map[string]string{
		"port": "server.port",
		"host": "server.host",
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := serveFlags.ValidateFlags(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if serveFlags.NoHotReload {
		cfg.Development.HotReload = false
	}

	logger := newLogger(cfg)
	m, err := manifest.Load(cfg.Components.Manifest)
	if err != nil {
		return err
	}

	srv, err := devserver.New(cfg, m, cfg.Components.Manifest, devserver.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Preview server: http://%s\n", srv.Addr())
	return srv.Run(ctx)
}
