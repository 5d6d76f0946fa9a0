package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"scenegen/internal/mcp"
	"scenegen/internal/scene"
)

var (
	serveMetricsAddr string
	serveControl     bool
	serveNoSave      bool
	serveOutputDir   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scene generation as MCP tools over stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout exposing
generate_scene, regenerate_scene, extract_keywords and build_image_prompt.
All tool calls share one conversation.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address, e.g. :9090")
	serveCmd.Flags().BoolVar(&serveControl, "control", false, "Start the conversation in control-text mode")
	serveCmd.Flags().BoolVar(&serveNoSave, "no-save", false, "Do not write scene files")
	serveCmd.Flags().StringVarP(&serveOutputDir, "output", "o", "", "Output directory (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := newApp(ctx, appOptions{outputDir: serveOutputDir, noSave: serveNoSave})
	if err != nil {
		return err
	}
	defer cleanup()

	if serveMetricsAddr != "" {
		shutdown := startMetricsServer(serveMetricsAddr, a)
		defer shutdown()
	}

	server := mcp.NewServer(a.newSession(a.mode(serveControl)), a.extractor, a.prompts, a.debug, version)
	a.debug.Printf("MCP server ready, session %s", a.sessionID)

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func startMetricsServer(addr string, a *app) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(scene.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.debug.Printf("Metrics server stopped: %v", err)
		}
	}()
	a.debug.Printf("Serving metrics on %s/metrics", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
