// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package api exposes the sidecar HTTP surface: the cached daemon health
// snapshot, catalog search for operators locating backed-up data, and
// per-daemon status.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stratastor/logger"

	"github.com/stratastor/bexec/internal/bemcli"
	"github.com/stratastor/bexec/internal/monitor"
	"github.com/stratastor/bexec/pkg/errors"
)

type Handler struct {
	logger  logger.Logger
	client  bemcli.Client
	sweeper *monitor.Sweeper
}

func NewHandler(l logger.Logger, client bemcli.Client, sweeper *monitor.Sweeper) *Handler {
	return &Handler{logger: l, client: client, sweeper: sweeper}
}

// RegisterRoutes mounts the bexec API under the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	bexec := rg.Group("/bexec")
	{
		bexec.GET("/health", h.health)
		bexec.GET("/search", h.search)
		bexec.GET("/services/status", h.servicesStatus)
	}
}

// health answers from the sweeper's cached snapshot. 503 until the first
// sweep completes and whenever a daemon is down, so load balancers and
// wrapper scripts can treat non-200 as unhealthy.
func (h *Handler) health(c *gin.Context) {
	snap, err := h.sweeper.Latest()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unknown",
			"error":  err.Error(),
		})
		return
	}

	if !snap.Healthy {
		down := snap.FirstDown()
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"down":      down.Daemon.ServiceName,
			"results":   snap.Results,
			"checkedAt": snap.CheckedAt,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"results":   snap.Results,
		"checkedAt": snap.CheckedAt,
	})
}

// search runs a catalog query. The path parameter is required; agent,
// recurse and isdir refine the search.
func (h *Handler) search(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "query parameter path is required",
		})
		return
	}

	recurse, _ := strconv.ParseBool(c.DefaultQuery("recurse", "false"))
	isDir, _ := strconv.ParseBool(c.DefaultQuery("isdir", "false"))

	query := bemcli.SearchQuery{
		Path:            path,
		AgentServer:     c.Query("agent"),
		Recurse:         recurse,
		PathIsDirectory: isDir,
	}

	results, err := h.client.SearchCatalog(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("Catalog search failed", "path", path, "err", err)
		status := http.StatusInternalServerError
		var be *errors.BexecError
		if e, ok := err.(*errors.BexecError); ok {
			be = e
			if be.HTTPStatus != 0 {
				status = be.HTTPStatus
			}
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(results),
		"results": results,
	})
}

// servicesStatus probes every monitored daemon fresh, without the
// fail-fast cut, so operators see the full picture in one call.
func (h *Handler) servicesStatus(c *gin.Context) {
	type entry struct {
		Service string `json:"service"`
		Display string `json:"display"`
		Running bool   `json:"running"`
		Status  string `json:"status,omitempty"`
		Error   string `json:"error,omitempty"`
	}

	entries := make([]entry, 0, len(monitor.Daemons))
	allRunning := true
	for _, d := range monitor.Daemons {
		e := entry{Service: d.ServiceName, Display: d.DisplayName}
		state, err := h.client.ServiceState(c.Request.Context(), d.ServiceName)
		if err != nil {
			e.Error = err.Error()
			allRunning = false
		} else {
			e.Running = state.Running
			e.Status = state.Status
			if !state.Running {
				allRunning = false
			}
		}
		entries = append(entries, e)
	}

	c.JSON(http.StatusOK, gin.H{
		"allRunning": allRunning,
		"services":   entries,
	})
}
