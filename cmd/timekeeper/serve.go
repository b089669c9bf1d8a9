package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"Mansoor88-6/timekeeper/internal/handler"
	"Mansoor88-6/timekeeper/internal/router"
	"Mansoor88-6/timekeeper/internal/tray"
)

const shutdownTimeout = 2 * time.Second

func serveAction(c *cli.Context, rt *runtime) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := rt.startServer()
	pterm.Info.Printfln("Serving on http://%s", srv.Addr)

	<-ctx.Done()
	rt.log.Info("Received shutdown signal")

	return rt.stopServer(srv)
}

func trayAction(c *cli.Context, rt *runtime) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if rt.cfg.Server.Enabled {
		srv = rt.startServer()
	}

	t := tray.New(rt.ctrl, rt.status, rt.log.Logger)
	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	// blocks until the Quit menu item or a signal
	t.Run()

	if srv != nil {
		return rt.stopServer(srv)
	}
	return nil
}

func (rt *runtime) startServer() *http.Server {
	if rt.remote != nil {
		ctx, cancel := context.WithTimeout(context.Background(), rt.cfg.Health.Timeout())
		if err := rt.remote.HealthCheck(ctx); err != nil {
			rt.log.Warn("Health source is not reachable, imported data will be empty", zap.Error(err))
		}
		cancel()
	}

	h := router.New(
		handler.NewTimerHandler(rt.ctrl, rt.storage, rt.log.Logger),
		handler.NewReportHandler(rt.reports, rt.storage, rt.insightsDefaults(), rt.loc, rt.log.Logger),
		rt.log.Logger,
	)

	srv := router.NewServer(fmt.Sprintf("localhost:%d", rt.cfg.Server.Port), h)

	go func() {
		rt.log.Info("Starting HTTP server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.log.Error("HTTP server error", zap.Error(err))
		}
	}()

	return srv
}

func (rt *runtime) stopServer(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}

	rt.log.Info("HTTP server stopped")
	return nil
}
