// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stratastor/logger"

	"github.com/stratastor/bexec/internal/api"
)

// NewEngine assembles the router: liveness at /health, the bexec API under
// /api/v1. Separated from Start so tests can drive the routes without a
// listener.
func NewEngine(l logger.Logger, handler *api.Handler) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware(l))

	// Process liveness only; daemon health lives under the API group and
	// reflects the sweeper's snapshot.
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	v1 := engine.Group("/api/v1")
	handler.RegisterRoutes(v1)

	return engine
}
