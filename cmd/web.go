package cmd

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
	"golang.org/x/sync/errgroup"

	"github.com/zalepa/evpop/dashboard"
)

const (
	sessionIdle     = 30 * time.Minute
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

func newWebCmd(a *app) *cobra.Command {
	var addr string
	c := &cobra.Command{
		Use:   "web",
		Short: "Serve the interactive dashboard",
		Example: `  evpop web
  evpop web --addr 127.0.0.1:9000 --data https://data.wa.gov/api/views/f6w7-q2d2/rows.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	c.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return c
}

// serve runs the dashboard until ctx is cancelled. The dataset loads in the
// background; the API answers 503 until it is ready.
func (a *app) serve(ctx context.Context) error {
	m := newMetrics()
	data := dashboard.NewController(nil,
		dashboard.WithLogger(a.logger.With(slog.String("component", "dataset"))),
		dashboard.WithObserver(m.observeRecompute),
	)
	s := newServer(a.cfg, a.logger, m, data)
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      a.cfg.HTTPTimeout(),
		IdleTimeout:       2 * time.Minute,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.InfoContext(ctx, "serving dashboard", slog.String("addr", srv.Addr))
		fmt.Printf("serving on http://%s\n", displayAddr(srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// A failed load is reported through /api/status, not fatal.
		if err := data.Load(ctx, a.loader(), a.cfg.DataPath); err == nil {
			m.rows.Set(float64(data.Status().Rows))
		}
		return nil
	})
	g.Go(func() error {
		t := time.NewTicker(sweepInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				if n := s.sweep(sessionIdle); n > 0 {
					a.logger.Debug("idle sessions closed", slog.Int("count", n))
				}
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
