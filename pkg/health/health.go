// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package health checks a running bexec sidecar over its HTTP API.
package health

import (
	"fmt"
	"time"

	"github.com/stratastor/logger"

	"github.com/stratastor/bexec/config"
	"github.com/stratastor/bexec/internal/constants"
	"github.com/stratastor/bexec/pkg/httpclient"
)

type HealthChecker struct {
	Client *httpclient.Client
	Logger logger.Logger
}

func NewHealthChecker(cfg *config.Config) *HealthChecker {
	logConfig := config.NewLoggerConfig(cfg)
	l, err := logger.NewTag(logConfig, "health")
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	baseURL := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	clientConfig := httpclient.NewClientConfig()
	clientConfig.Timeout = 5 * time.Second
	clientConfig.RetryCount = 3
	clientConfig.RetryWaitTime = 2 * time.Second
	clientConfig.BaseURL = baseURL
	client := httpclient.NewClient(clientConfig)

	return &HealthChecker{
		Client: client,
		Logger: l,
	}
}

// CheckHealth probes the sidecar's liveness endpoint.
func (hc *HealthChecker) CheckHealth() (string, error) {
	cfg := config.GetConfig()

	resp, err := hc.Client.R().
		SetPathParam("endpoint", cfg.Health.Endpoint).
		Get("{endpoint}")

	if err != nil {
		return "", err
	}

	if resp.IsSuccess() {
		return resp.String(), nil
	}
	return "", fmt.Errorf("unhealthy. Status: %s, Response: %s", resp.Status(), resp.String())
}

// CheckDaemons fetches the cached Backup Exec daemon snapshot. A 503 means
// either no sweep has completed yet or a daemon is down; the response body
// says which.
func (hc *HealthChecker) CheckDaemons() (string, bool, error) {
	resp, err := hc.Client.R().Get(constants.APIBase + constants.APIHealth)
	if err != nil {
		return "", false, err
	}
	return resp.String(), resp.IsSuccess(), nil
}
