// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package monitor verifies that the Backup Exec daemons are running. Checks
// walk a fixed ordered list and stop at the first daemon that is down, so a
// failed check never probes services past the failure.
package monitor

import (
	"context"
	"time"

	"github.com/stratastor/logger"

	"github.com/stratastor/bexec/internal/bemcli"
)

// Daemon is one monitored Backup Exec service.
type Daemon struct {
	// ServiceName is the Windows service name used for the probe.
	ServiceName string
	// DisplayName is the operator-facing name used in output and mail.
	DisplayName string
}

// Daemons is the check order. Dependencies come first so the first failure
// points at the root cause rather than a downstream casualty.
var Daemons = []Daemon{
	{ServiceName: "BackupExecRPCService", DisplayName: "Backup Exec RPC Service"},
	{ServiceName: "BackupExecDeviceMediaService", DisplayName: "Backup Exec Device & Media Service"},
	{ServiceName: "BackupExecJobEngine", DisplayName: "Backup Exec Job Engine"},
	{ServiceName: "BackupExecManagementService", DisplayName: "Backup Exec Management Service"},
	{ServiceName: "BackupExecAgentBrowser", DisplayName: "Backup Exec Agent Browser"},
	{ServiceName: "BackupExecAgentAccelerator", DisplayName: "Backup Exec Remote Agent"},
}

// CheckResult is the probe outcome for one daemon.
type CheckResult struct {
	Daemon  Daemon `json:"daemon"`
	Running bool   `json:"running"`
	Status  string `json:"status,omitempty"`
	Err     error  `json:"-"`
}

// Snapshot is the outcome of one sweep. When a daemon is down, Results
// covers only the daemons checked up to and including the failure.
type Snapshot struct {
	Healthy   bool          `json:"healthy"`
	Results   []CheckResult `json:"results"`
	CheckedAt time.Time     `json:"checkedAt"`
}

// FirstDown returns the first daemon that was not running, or nil when the
// sweep was healthy.
func (s *Snapshot) FirstDown() *CheckResult {
	for i := range s.Results {
		if !s.Results[i].Running {
			return &s.Results[i]
		}
	}
	return nil
}

// Monitor probes the daemon list through the vendor client.
type Monitor struct {
	logger logger.Logger
	client bemcli.Client
}

func New(l logger.Logger, client bemcli.Client) *Monitor {
	return &Monitor{logger: l, client: client}
}

// Check sweeps the daemon list in order and stops at the first daemon that
// is down or cannot be probed. A probe error counts as down.
func (m *Monitor) Check(ctx context.Context) *Snapshot {
	snap := &Snapshot{CheckedAt: time.Now()}

	for _, d := range Daemons {
		state, err := m.client.ServiceState(ctx, d.ServiceName)
		if err != nil {
			m.logger.Error("Daemon probe failed", "service", d.ServiceName, "err", err)
			snap.Results = append(snap.Results, CheckResult{Daemon: d, Err: err})
			return snap
		}

		result := CheckResult{
			Daemon:  d,
			Running: state.Running,
			Status:  state.Status,
		}
		snap.Results = append(snap.Results, result)

		if !state.Running {
			m.logger.Warn("Daemon is down", "service", d.ServiceName, "status", state.Status)
			return snap
		}
		m.logger.Debug("Daemon is running", "service", d.ServiceName)
	}

	snap.Healthy = true
	return snap
}
