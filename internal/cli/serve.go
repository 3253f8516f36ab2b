package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/pantrywisely/pantry/internal/httpapi"
	"github.com/pantrywisely/pantry/internal/metrics"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr      string
		rateLimit int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pantry and shopping list over HTTP",
		Long: `Serve exposes the items as a JSON API under /api, with /healthz and
Prometheus metrics at /metrics. It stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = a.config.GetString(cfgKeyListenAddr)
			}
			if !cmd.Flags().Changed("rate-limit") {
				rateLimit = a.config.GetInt(cfgKeyRateLimit)
			}
			if rateLimit <= 0 {
				return userError("rate limit must be positive, got %d", rateLimit)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			collector := metrics.NewCollector(reg)

			repo, err := a.repo(cmd.Context(), collector)
			if err != nil {
				return err
			}

			limiter := httpapi.NewRateLimiter(httpapi.RateLimiterConfig{
				Rate:  rate.Limit(float64(rateLimit) / 60.0),
				Burst: rateLimit,
			}, a.logger)
			defer limiter.Stop()

			router := httpapi.NewRouter(&httpapi.RouterDeps{
				Repo:        repo,
				Logger:      a.logger,
				Recorder:    collector,
				RateLimiter: limiter,
				Gatherer:    reg,
				Now:         a.now,
			})

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return sysError("listen on %s: %w", addr, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, ln, router)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultListenAddr, "listen address")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", defaultRateLimit, "requests per minute per client")
	return cmd
}

// serve runs an HTTP server on ln until ctx is done, then shuts it down.
func (a *app) serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("API server starting", slog.String("addr", ln.Addr().String()))
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return sysError("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return sysError("server shutdown: %w", err)
	}
	a.logger.Info("API server stopped")
	return nil
}
