package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/server"
)

var (
	serveAddr    string
	serveOrigins []string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Serve exposes the aggregator to the web collaborator:

  GET  /health
  GET  /api/ai/availability
  POST /api/analysis
  POST /api/bills/{congress}/{type}/{number}/analysis

Analyses with a bill ID are cached by bill and level. SIGINT or SIGTERM
drains in-flight requests before exiting.

Example:
  legislens serve
  legislens serve --addr :9090 --cors-origin https://lens.example.org`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "allowed browser origin, repeatable (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if len(serveOrigins) > 0 {
		cfg.Server.CORSOrigins = serveOrigins
	}
	level, err := model.ParseLevel(cfg.Analysis.DefaultLevel)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := buildRuntime(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	opts := []server.Option{
		server.WithStore(rt.store),
		server.WithLogger(rt.logger),
		server.WithDefaultLevel(level),
		server.WithCORSOrigins(cfg.Server.CORSOrigins),
		server.WithVersion(Version),
	}
	if rt.congress.Configured() {
		opts = append(opts, server.WithBills(rt.congress))
	}
	srv := server.New(rt.agg, opts...)

	printBanner(cmd.ErrOrStderr(), "Legislens API")
	fmt.Fprintf(cmd.ErrOrStderr(), "  Listening:    %s\n", cfg.Server.Addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "  Level:        %s\n", level)
	fmt.Fprintf(cmd.ErrOrStderr(), "  Cache:        %s\n", cfg.Cache.Backend)
	fmt.Fprintf(cmd.ErrOrStderr(), "  CORS origins: %s\n", strings.Join(cfg.Server.CORSOrigins, ", "))
	fmt.Fprintf(cmd.ErrOrStderr(), "  Congress.gov: %v\n", rt.congress.Configured())
	fmt.Fprintln(cmd.ErrOrStderr())

	if err := srv.ListenAndServe(ctx, cfg.Server); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	printSuccess(cmd.ErrOrStderr(), "Server stopped")
	return nil
}
