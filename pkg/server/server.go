// Copyright 2024 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Gist of what's happening:
//
// We're using Gin's Engine (gin.New()) which provides:
// - A router with middleware support
// - HTTP handler implementation (ServeHTTP)
// - Recovery middleware for handling panics
// And then we add custom middlewares for logging.
//
// When assigned to http.Server.Handler, we're using Gin's ServeHTTP method
// since gin.Engine implements http.Handler interface
//
// This gives us several benefits:
// - Graceful Shutdown: Using http.Server gives us control over graceful shutdown through the Shutdown() method
// - Context Integration: We can properly integrate with the application's context for lifecycle management
// - Timeouts: We can set various timeouts (read, write, idle) on the server
// - Error Handling: Better control over startup errors and shutdown process
// - Middleware: Still have access to all of Gin's middleware and routing features
//
// The main tradeoff is slightly more complex(strange?) code compared to gin.Run(),
// but proper lifecycle management and graceful shutdown make it worthwhile.
// This setup integrates well with our lifecycle package for signal handling.

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stratastor/logger"

	"github.com/stratastor/bexec/config"
	"github.com/stratastor/bexec/internal/api"
	"github.com/stratastor/bexec/internal/bemcli"
	"github.com/stratastor/bexec/internal/command"
	"github.com/stratastor/bexec/internal/monitor"
)

var srv *http.Server

// Start brings up the sidecar: the BEMCLI-backed client, the periodic
// health sweeper and the HTTP API. It blocks until ctx is cancelled or the
// listener fails.
func Start(ctx context.Context, port int) error {
	l, err := logger.NewTag(config.NewLoggerConfig(config.GetConfig()), "server")
	if err != nil {
		return err
	}
	cfg := config.GetConfig()

	timeout, err := command.ParseTimeout(cfg.BEMCLI.Timeout)
	if err != nil {
		return err
	}
	client, err := bemcli.NewPowerShellClient(l, cfg.BEMCLI.ModulePath, cfg.BEMCLI.Shell, cfg.BEMCLI.ExtraArgs, timeout)
	if err != nil {
		return err
	}

	interval, err := command.ParseTimeout(cfg.Health.Interval)
	if err != nil {
		return err
	}
	sweeper := monitor.NewSweeper(l, monitor.New(l, client), interval)
	if err := sweeper.Start(ctx); err != nil {
		return err
	}

	// Switch to debug mode for non-production environments
	switch cfg.Environment {
	case "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := NewEngine(l, api.NewHandler(l, client, sweeper))

	srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}

	// Channel to catch server startup errors
	errChan := make(chan error, 1)

	// While gin.Run() would be simpler, it:
	// - Doesn't support graceful shutdown
	// - Blocks until the server exits
	// - Doesn't integrate with our context-based lifecycle management from lifecycle package
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			if err != http.ErrServerClosed {
				errChan <- err
			}
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server startup failed: %w", err)
	case <-ctx.Done():
		return Shutdown(ctx)
	}
}

func Shutdown(ctx context.Context) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
