// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package errors

import "net/http"

const (
	DomainConfig   Domain = "CONFIG"
	DomainDispatch Domain = "DISPATCH"
	DomainJob      Domain = "JOB"
	DomainHealth   Domain = "HEALTH"
	DomainMail     Domain = "MAIL"
	DomainCommand  Domain = "CMD"
	DomainServer   Domain = "SERVER"
	DomainCatalog  Domain = "CATALOG"
	DomainReport   Domain = "REPORT"
)

// ErrorCode represents unique error identifiers
type ErrorCode int

// Domain represents the subsystem where the error originated
type Domain string

type BexecError struct {
	Code       ErrorCode `json:"code"`
	Domain     Domain    `json:"domain"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`

	// Metadata carries contextual fields that don't fit the standard error
	// fields: command lines, job names, exit codes. It is serialized in API
	// responses and flattened into structured log output.
	Metadata map[string]string `json:"metadata,omitempty"`

	cause error
}

// Error code ranges:
// 1000-1099: Configuration errors
// 1100-1199: Server errors
// 1200-1299: Dispatch / invocation errors
// 1300-1399: Command execution
// 1400-1499: Health check
// 1500-1599: Job lifecycle
// 1600-1699: Mail delivery
// 1700-1799: Catalog search
// 1800-1899: Report generation
const (
	// Configuration Errors (1000-1099)
	ConfigNotFound        = 1000 + iota // Config file not found
	ConfigInvalid                       // Invalid config format
	ConfigLoadFailed                    // Failed to load config
	ConfigWriteFailed                   // Failed to write config
	ConfigMarshalFailed                 // Config serialization failed
	ConfigUnmarshalFailed               // Config deserialization failed
	ConfigModuleNotFound                // BEMCLI module path unresolvable
)

const (
	// Server Errors (1100-1199)
	ServerStart             = 1100 + iota // Failed to start server
	ServerShutdown                        // Error during shutdown
	ServerBind                            // Failed to bind port
	ServerRequestValidation               // Request validation failed
	ServerInternalError                   // Internal server error
)

const (
	// Dispatch Errors (1200-1299)
	DispatchUnknownMode    = 1200 + iota // Mode string not recognized
	DispatchMissingMode                  // Mode not supplied
	DispatchMissingParam                 // Required mode parameter missing
	DispatchNotImplemented               // Mode has no handler
)

const (
	// Command Execution (1300-1399)
	CommandNotFound     = 1300 + iota // Shell binary not found
	CommandExecution                  // Execution failed
	CommandTimeout                    // Command timed out
	CommandInvalidInput               // Invalid command input
	CommandOutputParse                // Output parsing failed
	CommandEncoding                   // Script encoding failed
)

const (
	// Health Check (1400-1499)
	HealthCheckFailed      = 1400 + iota // Health check failed
	HealthServiceDown                    // Monitored daemon not running
	HealthProbeFailed                    // Daemon status probe errored
	HealthSnapshotStale                  // No sweep has completed yet
	HealthSchedulerFailed                // Sweep scheduler error
)

const (
	// Job Lifecycle (1500-1599)
	JobNotFound      = 1500 + iota // Job not found by name
	JobStartFailed                 // Job submission failed
	JobWaitTimeout                 // Job did not reach a terminal state in time
	JobStatusFailed                // Status fetch failed
	JobHistoryEmpty                // Job has no history entry
	JobLogFailed                   // Log retrieval failed
	JobNotSucceeded                // Job finished without Succeeded status
	JobRestoreFailed               // Restore submission failed
	JobCleanupFailed               // History deletion failed
)

const (
	// Mail Delivery (1600-1699)
	MailDialFailed = 1600 + iota // SMTP connection failed
	MailAuthFailed               // SMTP authentication rejected
	MailSendFailed               // Message submission failed
	MailNoContent                // Nothing to send
)

const (
	// Catalog Search (1700-1799)
	CatalogSearchFailed = 1700 + iota // Search-BECatalog failed
	CatalogInvalidQuery               // Invalid search query
)

const (
	// Report Generation (1800-1899)
	ReportGenerateFailed = 1800 + iota // Report export failed
	ReportReadFailed                   // Generated report unreadable
)

var errorDefinitions = map[ErrorCode]struct {
	message    string
	domain     Domain
	httpStatus int
}{
	ConfigNotFound:        {"Configuration file not found", DomainConfig, http.StatusNotFound},
	ConfigInvalid:         {"Invalid configuration format", DomainConfig, http.StatusBadRequest},
	ConfigLoadFailed:      {"Failed to load configuration", DomainConfig, http.StatusInternalServerError},
	ConfigWriteFailed:     {"Failed to write configuration", DomainConfig, http.StatusInternalServerError},
	ConfigMarshalFailed:   {"Failed to serialize configuration", DomainConfig, http.StatusInternalServerError},
	ConfigUnmarshalFailed: {"Failed to deserialize configuration", DomainConfig, http.StatusInternalServerError},
	ConfigModuleNotFound:  {"BEMCLI module not found", DomainConfig, http.StatusFailedDependency},

	ServerStart:             {"Failed to start server", DomainServer, http.StatusInternalServerError},
	ServerShutdown:          {"Error during server shutdown", DomainServer, http.StatusInternalServerError},
	ServerBind:              {"Failed to bind server port", DomainServer, http.StatusInternalServerError},
	ServerRequestValidation: {"Request validation failed", DomainServer, http.StatusBadRequest},
	ServerInternalError:     {"Internal server error", DomainServer, http.StatusInternalServerError},

	DispatchUnknownMode:    {"Unknown operation mode", DomainDispatch, http.StatusBadRequest},
	DispatchMissingMode:    {"Operation mode not supplied", DomainDispatch, http.StatusBadRequest},
	DispatchMissingParam:   {"Required parameter missing for mode", DomainDispatch, http.StatusBadRequest},
	DispatchNotImplemented: {"Mode has no handler", DomainDispatch, http.StatusNotImplemented},

	CommandNotFound:     {"Shell binary not found", DomainCommand, http.StatusFailedDependency},
	CommandExecution:    {"Command execution failed", DomainCommand, http.StatusInternalServerError},
	CommandTimeout:      {"Command timed out", DomainCommand, http.StatusGatewayTimeout},
	CommandInvalidInput: {"Invalid command input", DomainCommand, http.StatusBadRequest},
	CommandOutputParse:  {"Failed to parse command output", DomainCommand, http.StatusInternalServerError},
	CommandEncoding:     {"Failed to encode script", DomainCommand, http.StatusInternalServerError},

	HealthCheckFailed:     {"Health check failed", DomainHealth, http.StatusInternalServerError},
	HealthServiceDown:     {"Monitored service is not running", DomainHealth, http.StatusServiceUnavailable},
	HealthProbeFailed:     {"Service status probe failed", DomainHealth, http.StatusInternalServerError},
	HealthSnapshotStale:   {"No health sweep has completed", DomainHealth, http.StatusServiceUnavailable},
	HealthSchedulerFailed: {"Health sweep scheduler error", DomainHealth, http.StatusInternalServerError},

	JobNotFound:      {"Backup job not found", DomainJob, http.StatusNotFound},
	JobStartFailed:   {"Failed to start job", DomainJob, http.StatusInternalServerError},
	JobWaitTimeout:   {"Job did not reach a terminal state in time", DomainJob, http.StatusGatewayTimeout},
	JobStatusFailed:  {"Failed to fetch job status", DomainJob, http.StatusInternalServerError},
	JobHistoryEmpty:  {"Job has no history entry", DomainJob, http.StatusNotFound},
	JobLogFailed:     {"Failed to retrieve job log", DomainJob, http.StatusInternalServerError},
	JobNotSucceeded:  {"Job did not end in success", DomainJob, http.StatusInternalServerError},
	JobRestoreFailed: {"Failed to submit restore job", DomainJob, http.StatusInternalServerError},
	JobCleanupFailed: {"Failed to delete job history", DomainJob, http.StatusInternalServerError},

	MailDialFailed: {"SMTP connection failed", DomainMail, http.StatusBadGateway},
	MailAuthFailed: {"SMTP authentication rejected", DomainMail, http.StatusUnauthorized},
	MailSendFailed: {"Failed to send mail", DomainMail, http.StatusBadGateway},
	MailNoContent:  {"No message content to send", DomainMail, http.StatusBadRequest},

	CatalogSearchFailed: {"Catalog search failed", DomainCatalog, http.StatusInternalServerError},
	CatalogInvalidQuery: {"Invalid catalog search query", DomainCatalog, http.StatusBadRequest},

	ReportGenerateFailed: {"Failed to generate report", DomainReport, http.StatusInternalServerError},
	ReportReadFailed:     {"Failed to read generated report", DomainReport, http.StatusInternalServerError},
}
