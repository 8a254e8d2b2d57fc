// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package bemcli

import "time"

// JobStatus is the vendor-reported state of a Backup Exec job. The set is
// open ended across Backup Exec versions; only the statuses the controller
// branches on are named here.
type JobStatus string

const (
	StatusSucceeded               JobStatus = "Succeeded"
	StatusSucceededWithExceptions JobStatus = "SucceededWithExceptions"
	StatusError                   JobStatus = "Error"
	StatusCanceled                JobStatus = "Canceled"
	StatusCompleted               JobStatus = "Completed"
	StatusActive                  JobStatus = "Active"
	StatusReady                   JobStatus = "Ready"
	StatusScheduled               JobStatus = "Scheduled"
	StatusQueued                  JobStatus = "Queued"
	StatusUnknown                 JobStatus = ""
)

// activeStatuses are states in which a job is still pending or running.
// Anything outside this set is treated as terminal, so an unrecognized
// vendor status ends the wait instead of hanging the poll loop.
var activeStatuses = map[JobStatus]struct{}{
	StatusActive:    {},
	StatusReady:     {},
	StatusScheduled: {},
	StatusQueued:    {},
}

// Terminal reports whether the job has finished running, successfully or not.
func (s JobStatus) Terminal() bool {
	if s == StatusUnknown {
		return false
	}
	_, active := activeStatuses[s]
	return !active
}

// Succeeded reports whether the status is exactly Succeeded. Every other
// terminal status, SucceededWithExceptions included, classifies as failure.
func (s JobStatus) Succeeded() bool {
	return s == StatusSucceeded
}

// Job is an opaque handle to a vendor-managed backup or restore job. The
// vendor owns its lifecycle; this tool only observes it.
type Job struct {
	Name    string    `json:"name"`
	Status  JobStatus `json:"status"`
	JobType string    `json:"jobType,omitempty"`
}

// JobHistory is the record of a job's most recent run, the source of the
// post-run status and the rendered log.
type JobHistory struct {
	ID        string    `json:"id"`
	JobName   string    `json:"jobName"`
	Status    JobStatus `json:"status"`
	StartTime time.Time `json:"startTime,omitempty"`
	EndTime   time.Time `json:"endTime,omitempty"`
}

// ServiceState is a point-in-time probe result for one Backup Exec daemon.
type ServiceState struct {
	Name    string `json:"name"`
	Found   bool   `json:"found"`
	Status  string `json:"status"`
	Running bool   `json:"running"`
}

// SearchQuery describes one catalog search request.
type SearchQuery struct {
	Path            string `json:"path"`
	AgentServer     string `json:"agent,omitempty"`
	Recurse         bool   `json:"recurse"`
	PathIsDirectory bool   `json:"isdir"`
}

// CatalogItem is one catalog search hit.
type CatalogItem struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	BackupSet   string `json:"backupSet,omitempty"`
	AgentServer string `json:"agentServer,omitempty"`
	BackupTime  string `json:"backupTime,omitempty"`
}
