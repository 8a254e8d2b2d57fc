// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package constants

// Build-time variables set via ldflags
var (
	Version   = "v0.0.1-dev" // Set via -X flag during build
	CommitSHA = "unknown"    // Set via -X flag during build
	BuildTime = "unknown"    // Set via -X flag during build
)

const (
	BexecPIDFilePath = "/var/run/bexec/bexec.pid"

	// config
	ConfigFileName = "bexec.yml"

	// Default BEMCLI module location on a Backup Exec media server
	DefaultModulePath = `C:\Program Files\Veritas\Backup Exec\Modules\PowerShell3\BEMCLI`

	// routes
	APIVersion = "v1"
	APIBase    = "/api/" + APIVersion + "/bexec"

	// APISearch serves catalog search queries against the Backup Exec catalog
	APISearch = "/search"

	// APIHealth serves the cached daemon health snapshot
	APIHealth = "/health"

	// APIServices is the base path for daemon status endpoints
	APIServices = APIBase + "/services"
)
