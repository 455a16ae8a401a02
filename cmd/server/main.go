package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpPkg "github.com/eaglepoint-labs/elevator-group-control/internal/http"
	"github.com/eaglepoint-labs/elevator-group-control/internal/infra/config"
	"github.com/eaglepoint-labs/elevator-group-control/internal/infra/logging"
	"github.com/eaglepoint-labs/elevator-group-control/internal/manager"
)

func main() {
	cfg, err := config.InitConfig()
	if err != nil {
		slog.Error("failed to initialize configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logging.InitLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	envInfo := cfg.GetEnvironmentInfo()
	slog.InfoContext(ctx, "dispatch service starting up",
		slog.String("environment", cfg.Environment),
		slog.String("log_level", cfg.LogLevel),
		slog.Int("port", cfg.Port),
		slog.Bool("metrics_enabled", cfg.MetricsEnabled),
		slog.Bool("websocket_enabled", cfg.WebSocketEnabled),
		slog.Bool("circuit_breaker_enabled", cfg.CircuitBreakerEnabled),
		slog.Any("config_summary", envInfo))

	mgr := manager.New(cfg, slog.Default())
	mgr.Start(ctx)

	port := cfg.Port
	if port <= 0 {
		slog.WarnContext(ctx, "invalid port in configuration, using default",
			slog.Int("configured_port", port),
			slog.Int("default_port", 6660))
		port = 6660
	}

	server := httpPkg.NewServer(cfg, port, mgr)

	var wsServer *httpPkg.WebSocketServer
	if cfg.WebSocketEnabled {
		wsServer = httpPkg.NewWebSocketServer(6661, mgr, slog.With(slog.String("component", "websocket-server")))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 2)

	go func() {
		slog.InfoContext(ctx, "starting HTTP server",
			slog.Int("port", port),
			slog.String("environment", cfg.Environment),
			slog.Duration("read_timeout", cfg.ReadTimeout),
			slog.Duration("write_timeout", cfg.WriteTimeout),
			slog.Duration("idle_timeout", cfg.IdleTimeout))

		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "HTTP server failed to start",
				slog.Int("port", port),
				slog.String("error", err.Error()))
			serverErrCh <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if wsServer != nil {
		go func() {
			slog.InfoContext(ctx, "starting WebSocket server", slog.Int("port", 6661))

			if err := wsServer.Start(); err != nil && err != http.ErrServerClosed {
				slog.ErrorContext(ctx, "WebSocket server failed to start",
					slog.Int("port", 6661),
					slog.String("error", err.Error()))
				serverErrCh <- fmt.Errorf("WebSocket server failed: %w", err)
			}
		}()
	}

	startupTimer := time.NewTimer(2 * time.Second)

	select {
	case err := <-serverErrCh:
		startupTimer.Stop()
		slog.ErrorContext(ctx, "server startup failed", slog.String("error", err.Error()))
		shutdownServers(server, wsServer, cfg)
		_ = mgr.Shutdown(context.Background())
		os.Exit(1)

	case <-startupTimer.C:
		slog.InfoContext(ctx, "all servers started successfully")

	case sig := <-quit:
		startupTimer.Stop()
		slog.InfoContext(ctx, "received shutdown signal during startup",
			slog.String("signal", sig.String()))
		shutdownServers(server, wsServer, cfg)
		_ = mgr.Shutdown(context.Background())
		return
	}

	sig := <-quit
	slog.InfoContext(ctx, "received shutdown signal",
		slog.String("signal", sig.String()),
		slog.Duration("shutdown_timeout", cfg.ShutdownTimeout))

	cancel()

	shutdownServers(server, wsServer, cfg)

	slog.InfoContext(ctx, "shutting down manager")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	if err := mgr.Shutdown(shutdownCtx); err != nil {
		slog.Error("manager shutdown failed", slog.String("error", err.Error()))
	}
	shutdownCancel()
	slog.InfoContext(ctx, "manager shutdown completed")

	<-time.After(cfg.ShutdownGrace)
	slog.InfoContext(ctx, "graceful shutdown completed",
		slog.Duration("grace_period", cfg.ShutdownGrace))
}

// shutdownServers gracefully shuts down both HTTP and WebSocket servers.
func shutdownServers(server *httpPkg.Server, wsServer *httpPkg.WebSocketServer, cfg *config.Config) {
	slog.Info("shutting down servers gracefully")

	if err := server.Shutdown(); err != nil {
		slog.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	} else {
		slog.Info("HTTP server shutdown completed")
	}

	if wsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := wsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("WebSocket server shutdown failed", slog.String("error", err.Error()))
		} else {
			slog.Info("WebSocket server shutdown completed")
		}
	}
}
