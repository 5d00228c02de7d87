package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-presign/internal/logging"
	"github.com/tendant/simple-presign/pkg/simplepresign"
	"github.com/tendant/simple-presign/pkg/simplepresign/api"
	"github.com/tendant/simple-presign/pkg/simplepresign/config"
	"github.com/tendant/simple-presign/pkg/simplepresign/metrics"
)

// ServeOptions configures `presign serve`
type ServeOptions struct {
	*GlobalOptions

	Port            string
	ShutdownTimeout time.Duration
}

func NewServeOptions(g *GlobalOptions) *ServeOptions {
	return &ServeOptions{GlobalOptions: g}
}

func NewServeCommand(o *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP presign service",
		Example: `  # Serve with configuration from the environment
  presign serve

  # Serve on another port with a local .env file
  presign serve --port 9090 --env-file .env`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&o.Port, "port", "p", "", "Port to listen on (overrides PORT)")
	cmd.Flags().DurationVar(&o.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "Grace period for in-flight requests on shutdown")

	return cmd
}

func (o *ServeOptions) Validate() error {
	if o.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	return nil
}

func (o *ServeOptions) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var extra []config.Option
	if o.Port != "" {
		extra = append(extra, config.WithPort(o.Port))
	}
	cfg, err := o.LoadConfig(extra...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Setup(o.ErrOut, cfg.LogLevel, cfg.Environment)

	sink, err := metrics.NewSink(metrics.DefaultNamespace)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	svc, err := cfg.BuildService(ctx, simplepresign.WithEventSink(sink))
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}

	if cfg.IsProduction() {
		for _, origin := range cfg.AllowedOrigins {
			if origin == "*" {
				slog.Warn("CORS allows any origin in production; set CORS_ALLOWED_ORIGINS to an allow-list")
				break
			}
		}
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.RouterConfig{
			Service:        svc,
			AllowedOrigins: cfg.AllowedOrigins,
			Metrics:        sink.Handler(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting presign server", "addr", srv.Addr, "backend", svc.Backend().Name(),
			"environment", cfg.Environment, "expiry", cfg.Expiry())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down presign server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), o.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
