package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allergenscan/backend/config"
	httpDelivery "github.com/allergenscan/backend/internal/delivery/http"
	"github.com/allergenscan/backend/internal/delivery/mcpserver"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// newRootCmd builds the command tree. Running without a subcommand starts
// the HTTP server.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "allergenscan",
		Short: "Allergen scanner backend",
		Long: `AllergenScan looks up packaged food by barcode on Open Food Facts and
asks a language model whether the ingredients are safe for a stored
allergen profile.

Modes:

1. HTTP (default, or "serve"): REST API for the scanner app
2. MCP ("mcp"): stdio MCP server exposing lookup, analysis and the
   ingredient lookup tool to MCP clients
3. One-shot commands ("lookup", "analyze", "profile", "allergens")
   print JSON to stdout

Configuration is read from config.yaml or ALLERGENSCAN_* environment
variables. The analyze, serve and mcp modes need ALLERGENSCAN_LLM_API_KEY.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE:  runMCP,
	}

	rootCmd.AddCommand(serveCmd, mcpCmd, newLookupCmd(), newAnalyzeCmd(), newAllergensCmd(), newProfileCmd())

	return rootCmd
}

// runServe runs the REST API until interrupted
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Log)

	logger.Info("Starting AllergenScan backend",
		"version", httpDelivery.Version,
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"cache", cfg.Cache.Type,
		"profile_backend", cfg.Profile.Backend,
		"highlight_mode", cfg.Highlight.Mode)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return err
	}
	defer a.close()

	handler := httpDelivery.NewHandler(a.lookup, a.analysis, a.scan, a.profile, a.highlighter, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// runMCP serves MCP over stdio. Logs go to stderr so stdout stays protocol only.
func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.NewStderrLogger(cfg.Log)

	logger.Info("Starting AllergenScan MCP server",
		"mode", "stdio",
		"profile_backend", cfg.Profile.Backend)

	a, err := newApp(cmd.Context(), cfg, logger, true)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return err
	}
	defer a.close()

	return mcpserver.NewServer(a.lookup, a.scan, a.tool, logger).ServeStdio()
}

// loadOfflineApp builds an app without the reasoning backend and with logs on stderr
func loadOfflineApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadWithoutLLM()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, config.NewStderrLogger(cfg.Log), false)
}

// loadOnlineApp builds the full app with logs on stderr
func loadOnlineApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, config.NewStderrLogger(cfg.Log), true)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	return newRootCmd().Execute()
}
