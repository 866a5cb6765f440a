package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/soaringjerry/VisitPulse/internal/config"
	"github.com/soaringjerry/VisitPulse/internal/middleware"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the session janitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c)
		},
	}
}

func serve(ctx context.Context, c *cli) error {
	a, err := newApp(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			c.log.Warn("close store", "error", err)
		}
	}()
	if !a.admin.Enabled() {
		c.log.Warn("VISITPULSE_ADMIN_CODE not set, dashboard and reset are disabled")
	} else if a.auth.Ephemeral() {
		c.log.Warn("VISITPULSE_JWT_SECRET not set, signing dashboard tokens with a per-process random secret")
	}

	frontend, err := frontendHandler(c.cfg)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              c.cfg.Addr,
		Handler:           a.router().Handler(frontend),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.log.Info("VisitPulse server listening", "addr", c.cfg.Addr, "commit", c.cfg.Commit)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.sessions.Run(gctx, c.cfg.SweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		c.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// frontendHandler serves the kiosk frontend: static files when a directory
// is configured, otherwise a proxy to the dev server, otherwise nothing.
func frontendHandler(cfg *config.Config) (http.Handler, error) {
	if cfg.StaticDir != "" {
		return http.FileServer(http.Dir(cfg.StaticDir)), nil
	}
	if cfg.DevFrontend == "" {
		return nil, nil
	}
	u, err := url.Parse(cfg.DevFrontend)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid VISITPULSE_DEV_FRONTEND_URL %q", cfg.DevFrontend)
	}
	rp := httputil.NewSingleHostReverseProxy(u)
	// upstream cache headers would otherwise be added next to NoStore's
	rp.ModifyResponse = func(res *http.Response) error {
		middleware.SetNoStore(res.Header)
		return nil
	}
	return rp, nil
}
