// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package bemcli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stratastor/logger"

	"github.com/stratastor/bexec/internal/command"
	"github.com/stratastor/bexec/pkg/errors"
)

// PowerShellClient drives BEMCLI through encoded PowerShell scripts.
type PowerShellClient struct {
	logger     logger.Logger
	executor   *command.Executor
	modulePath string
}

var _ Client = (*PowerShellClient)(nil)

// VerifyModulePath checks that the BEMCLI module is present at path. Both
// the module directory and its manifest file are accepted.
func VerifyModulePath(path string) error {
	if path == "" {
		return errors.New(errors.ConfigModuleNotFound, "module path is empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, errors.ConfigModuleNotFound).
			WithMetadata("module_path", path)
	}
	if info.IsDir() {
		manifest := filepath.Join(path, "BEMCLI.psd1")
		if _, err := os.Stat(manifest); err != nil {
			return errors.New(errors.ConfigModuleNotFound,
				"module directory has no BEMCLI.psd1 manifest").
				WithMetadata("module_path", path)
		}
	}
	return nil
}

// NewPowerShellClient verifies the module path, resolves the shell and
// returns a ready client.
func NewPowerShellClient(
	l logger.Logger,
	modulePath string,
	shell string,
	extraArgs string,
	timeout time.Duration,
) (*PowerShellClient, error) {
	if err := VerifyModulePath(modulePath); err != nil {
		return nil, err
	}

	executor, err := command.NewExecutor(l, shell, extraArgs, timeout)
	if err != nil {
		return nil, err
	}

	return &PowerShellClient{
		logger:     l,
		executor:   executor,
		modulePath: modulePath,
	}, nil
}

// decodeScriptOutput unmarshals ConvertTo-Json output. PowerShell sometimes
// emits preamble before the JSON document, so on a parse failure the decoder
// retries from the first '{' or '[' in the output.
func decodeScriptOutput(output []byte, v interface{}) error {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return errors.New(errors.CommandOutputParse, "script produced no output")
	}

	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	start := -1
	for _, marker := range []string{"{", "["} {
		if idx := strings.Index(trimmed, marker); idx >= 0 && (start == -1 || idx < start) {
			start = idx
		}
	}
	if start == -1 {
		return errors.New(errors.CommandOutputParse, "no JSON document in script output").
			WithMetadata("output", trimmed)
	}

	if err := json.Unmarshal([]byte(trimmed[start:]), v); err != nil {
		return errors.Wrap(err, errors.CommandOutputParse).
			WithMetadata("output", trimmed)
	}
	return nil
}

func (c *PowerShellClient) run(ctx context.Context, script string, v interface{}) error {
	output, err := c.executor.RunScript(ctx, script)
	if err != nil {
		return err
	}
	return decodeScriptOutput(output, v)
}

func (c *PowerShellClient) LookupJob(ctx context.Context, name string) (*Job, error) {
	var result struct {
		Found   bool   `json:"found"`
		Name    string `json:"name"`
		Status  string `json:"status"`
		JobType string `json:"jobType"`
	}
	if err := c.run(ctx, lookupJobScript(c.modulePath, name), &result); err != nil {
		return nil, err
	}
	if !result.Found {
		return nil, errors.New(errors.JobNotFound, fmt.Sprintf("no job named %q", name))
	}
	return &Job{
		Name:    result.Name,
		Status:  JobStatus(result.Status),
		JobType: result.JobType,
	}, nil
}

func (c *PowerShellClient) StartJob(ctx context.Context, name string) error {
	var result struct {
		Started bool `json:"started"`
	}
	if err := c.run(ctx, startJobScript(c.modulePath, name), &result); err != nil {
		return errors.Wrap(err, errors.JobStartFailed).WithMetadata("job", name)
	}
	return nil
}

func (c *PowerShellClient) JobStatus(ctx context.Context, name string) (JobStatus, error) {
	job, err := c.LookupJob(ctx, name)
	if err != nil {
		return StatusUnknown, err
	}
	return job.Status, nil
}

func (c *PowerShellClient) LastHistory(ctx context.Context, jobName string) (*JobHistory, error) {
	var result struct {
		Found     bool   `json:"found"`
		ID        string `json:"id"`
		JobName   string `json:"jobName"`
		Status    string `json:"status"`
		StartTime string `json:"startTime"`
		EndTime   string `json:"endTime"`
	}
	if err := c.run(ctx, lastHistoryScript(c.modulePath, jobName), &result); err != nil {
		return nil, err
	}
	if !result.Found {
		return nil, errors.New(errors.JobHistoryEmpty, fmt.Sprintf("job %q has no history", jobName))
	}

	hist := &JobHistory{
		ID:      result.ID,
		JobName: result.JobName,
		Status:  JobStatus(result.Status),
	}
	if t, err := time.Parse(time.RFC3339, result.StartTime); err == nil {
		hist.StartTime = t
	}
	if t, err := time.Parse(time.RFC3339, result.EndTime); err == nil {
		hist.EndTime = t
	}
	return hist, nil
}

func (c *PowerShellClient) RenderLog(ctx context.Context, historyID string) (string, error) {
	var result struct {
		Found bool   `json:"found"`
		HTML  string `json:"html"`
	}
	if err := c.run(ctx, renderLogScript(c.modulePath, historyID), &result); err != nil {
		return "", errors.Wrap(err, errors.JobLogFailed).WithMetadata("history", historyID)
	}
	if !result.Found {
		return "", errors.New(errors.JobHistoryEmpty, fmt.Sprintf("no history entry %q", historyID))
	}
	return result.HTML, nil
}

func (c *PowerShellClient) SubmitRestore(ctx context.Context, jobName, redirectPath string) (*Job, error) {
	var result struct {
		Found  bool   `json:"found"`
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if err := c.run(ctx, submitRestoreScript(c.modulePath, jobName, redirectPath), &result); err != nil {
		return nil, errors.Wrap(err, errors.JobRestoreFailed).
			WithMetadata("job", jobName).
			WithMetadata("redirect_path", redirectPath)
	}
	if !result.Found {
		return nil, errors.New(errors.JobHistoryEmpty, fmt.Sprintf("job %q has no history to restore", jobName))
	}
	return &Job{Name: result.Name, Status: JobStatus(result.Status)}, nil
}

func (c *PowerShellClient) GenerateReport(ctx context.Context, reportName, outDir string) (string, error) {
	var result struct {
		Generated bool `json:"generated"`
	}
	if err := c.run(ctx, generateReportScript(c.modulePath, reportName, outDir), &result); err != nil {
		return "", errors.Wrap(err, errors.ReportGenerateFailed).
			WithMetadata("report", reportName)
	}
	return filepath.Join(outDir, reportName+".html"), nil
}

func (c *PowerShellClient) DeleteAllJobHistory(ctx context.Context) ([]string, error) {
	var result struct {
		Jobs []string `json:"jobs"`
	}
	if err := c.run(ctx, deleteAllHistoryScript(c.modulePath), &result); err != nil {
		return nil, errors.Wrap(err, errors.JobCleanupFailed)
	}
	return result.Jobs, nil
}

func (c *PowerShellClient) ServiceState(ctx context.Context, serviceName string) (*ServiceState, error) {
	var result struct {
		Found  bool   `json:"found"`
		Status string `json:"status"`
	}
	if err := c.run(ctx, serviceStateScript(serviceName), &result); err != nil {
		return nil, errors.Wrap(err, errors.HealthProbeFailed).
			WithMetadata("service", serviceName)
	}
	return &ServiceState{
		Name:    serviceName,
		Found:   result.Found,
		Status:  result.Status,
		Running: result.Found && result.Status == "Running",
	}, nil
}

func (c *PowerShellClient) SearchCatalog(ctx context.Context, q SearchQuery) ([]CatalogItem, error) {
	var result struct {
		Results []CatalogItem `json:"results"`
	}
	if err := c.run(ctx, searchCatalogScript(c.modulePath, q), &result); err != nil {
		return nil, errors.Wrap(err, errors.CatalogSearchFailed).
			WithMetadata("path", q.Path)
	}
	return result.Results, nil
}
