package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-compare/internal/compare"
	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/embedding"
	"github.com/kozaktomas/face-compare/internal/metrics"
	"github.com/kozaktomas/face-compare/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the comparison HTTP server",
	Long: `Start the Face Compare HTTP server.

The server accepts two uploaded images on POST /api/v1/compare (also POST
/compare) and returns their similarity and verdict. It also exposes the
active provider on GET /api/v1/provider and Prometheus metrics on /metrics.

Host and port default to WEB_HOST and WEB_PORT; flags take precedence.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", constants.DefaultPort, "Port to listen on")
	serveCmd.Flags().String("host", constants.DefaultHost, "Host to bind to")
}

// resolveServeHostPort resolves port and host from the configuration and flags.
func resolveServeHostPort(cmd *cobra.Command, port int, host string) (int, string) {
	if cmd.Flags().Changed("port") {
		port = mustGetInt(cmd, "port")
	}
	if cmd.Flags().Changed("host") {
		host = mustGetString(cmd, "host")
	}
	return port, host
}

// warnIfUnhealthy probes the provider once at startup. An unreachable
// embedding server is not fatal; requests fail with 502 until it comes up.
func warnIfUnhealthy(ctx context.Context, provider embedding.Provider) {
	checker, ok := provider.(embedding.HealthChecker)
	if !ok {
		return
	}
	if err := checker.Health(ctx); err != nil {
		fmt.Printf("Warning: face provider %s is not healthy: %v\n", provider.Name(), err)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	recorder := metrics.New(nil)
	service, settings, err := newComparisonService(cfg, compare.WithObserver(recorder))
	if err != nil {
		return err
	}
	provider := service.Provider()
	defer provider.Close()

	fmt.Printf("Using face provider %s (%s, metric %s, default threshold %.2f)\n",
		settings.Name, settings.Kind, settings.Metric.Name, cfg.Match.Threshold)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	warnIfUnhealthy(ctx, provider)

	port, host := resolveServeHostPort(cmd, cfg.Web.Port, cfg.Web.Host)
	server := web.NewServer(cfg, settings, service, recorder, port, host)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Compare on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
