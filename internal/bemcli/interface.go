// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package bemcli

import "context"

// Client is the capability surface of the Backup Exec job-management API
// that the dispatcher, lifecycle controller, health monitor and catalog
// search consume. Production uses the PowerShell-backed implementation in
// this package; tests substitute recording doubles.
type Client interface {
	// LookupJob resolves a job by name. Returns a JobNotFound error when
	// the vendor knows no such job.
	LookupJob(ctx context.Context, name string) (*Job, error)

	// StartJob triggers execution of a job without interactive confirmation.
	StartJob(ctx context.Context, name string) error

	// JobStatus fetches the job's current status fresh from the vendor.
	JobStatus(ctx context.Context, name string) (JobStatus, error)

	// LastHistory returns the most recent history entry for a job.
	LastHistory(ctx context.Context, jobName string) (*JobHistory, error)

	// RenderLog fetches the log of one history entry rendered as HTML.
	RenderLog(ctx context.Context, historyID string) (string, error)

	// SubmitRestore submits a filesystem restore of the job's most recent
	// history entry redirected to the given folder and returns the restore
	// job handle.
	SubmitRestore(ctx context.Context, jobName, redirectPath string) (*Job, error)

	// GenerateReport exports the named report to outDir and returns the
	// path of the generated HTML file.
	GenerateReport(ctx context.Context, reportName, outDir string) (string, error)

	// DeleteAllJobHistory removes the history of every job and returns the
	// names of the jobs that had history to delete.
	DeleteAllJobHistory(ctx context.Context) ([]string, error)

	// ServiceState probes one Backup Exec daemon by Windows service name.
	ServiceState(ctx context.Context, serviceName string) (*ServiceState, error)

	// SearchCatalog runs a catalog search for the given query.
	SearchCatalog(ctx context.Context, q SearchQuery) ([]CatalogItem, error)
}
