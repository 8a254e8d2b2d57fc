// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch routes one invocation to its mode handler. Required
// parameters are validated per mode before any externally visible action,
// and outcomes map to the exit codes scheduler integrations branch on.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/stratastor/logger"

	"github.com/stratastor/bexec/internal/bemcli"
	"github.com/stratastor/bexec/internal/jobs"
	"github.com/stratastor/bexec/internal/monitor"
	"github.com/stratastor/bexec/pkg/errors"
)

// Exit codes. Schedulers and wrapper scripts branch on the exact values, so
// they are part of the tool's contract.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitModuleMissing = 100
	ExitJobFailed     = 101
	ExitMissingParam  = 200
	ExitServiceDown   = 300
)

// Invocation is the full parameter set for one run. Exactly one mode is
// active; which other fields matter depends on it.
type Invocation struct {
	Option        string
	JobName       string
	RestoreFolder string
	ModulePath    string
	ReportName    string
	ReportPath    string

	SMTPHost string
	SMTPPort int
	To       string
	From     string
	User     string
	Password string
	Subject  string
	Body     string
}

// Dispatcher validates invocations and routes them to the lifecycle
// controller, the one-shot handlers or the health monitor.
type Dispatcher struct {
	logger  logger.Logger
	client  bemcli.Client
	mailer  jobs.Mailer
	monitor *monitor.Monitor
	out     io.Writer

	pollInterval time.Duration
	waitTimeout  time.Duration

	// swapped out in tests
	verifyModule func(string) error
	now          func() time.Time
}

func NewDispatcher(
	l logger.Logger,
	client bemcli.Client,
	mailer jobs.Mailer,
	out io.Writer,
	pollInterval time.Duration,
	waitTimeout time.Duration,
) *Dispatcher {
	return &Dispatcher{
		logger:       l,
		client:       client,
		mailer:       mailer,
		monitor:      monitor.New(l, client),
		out:          out,
		pollInterval: pollInterval,
		waitTimeout:  waitTimeout,
		verifyModule: bemcli.VerifyModulePath,
		now:          time.Now,
	}
}

func (d *Dispatcher) printf(format string, args ...interface{}) {
	fmt.Fprintf(d.out, format+"\n", args...)
}

// Run executes one invocation and returns the process exit code. The module
// path is checked before anything else; parameter validation follows and
// never touches the vendor, mail or health APIs.
func (d *Dispatcher) Run(ctx context.Context, inv Invocation) int {
	if err := d.verifyModule(inv.ModulePath); err != nil {
		d.printf("BEMCLI module not found at %q", inv.ModulePath)
		d.logger.Error("Module path unresolvable", "path", inv.ModulePath, "err", err)
		return ExitModuleMissing
	}

	mode, err := ParseMode(inv.Option)
	if err != nil {
		d.printf("Invalid mode %q: expected one of full, incremental, differential, restore, report, cleanup, service", inv.Option)
		return ExitMissingParam
	}

	if err := validate(mode, inv); err != nil {
		d.printf("%s", err.Error())
		return ExitMissingParam
	}

	mail := d.mailFields(mode, inv)

	switch mode {
	case ModeFull, ModeIncremental, ModeDifferential:
		d.printf("Running %s backup of job %q", mode, inv.JobName)
		return d.classify(d.controller().RunBackup(ctx, inv.JobName, mail))

	case ModeRestore:
		d.printf("Restoring last run of job %q to %s", inv.JobName, inv.RestoreFolder)
		return d.classify(d.controller().RunRestore(ctx, inv.JobName, inv.RestoreFolder, mail))

	case ModeReport:
		d.printf("Generating report %q", inv.ReportName)
		if err := d.controller().RunReport(ctx, inv.ReportName, inv.ReportPath, mail); err != nil {
			d.printf("Report failed: %s", err.Error())
			return ExitFailure
		}
		return ExitOK

	case ModeCleanup:
		if _, err := d.controller().RunCleanup(ctx); err != nil {
			d.printf("Cleanup failed: %s", err.Error())
			return ExitFailure
		}
		return ExitOK

	case ModeService:
		return d.runServiceCheck(ctx)
	}

	// unreachable; ParseMode only returns the modes above
	return ExitFailure
}

func (d *Dispatcher) controller() *jobs.Controller {
	return jobs.NewController(d.logger, d.client, d.mailer, d.out, d.pollInterval, d.waitTimeout)
}

// classify maps a lifecycle error to the exit code contract: mail transport
// failures are operational errors, everything else on the job path means
// the run did not end in success.
func (d *Dispatcher) classify(err error) int {
	if err == nil {
		return ExitOK
	}
	d.printf("%s", err.Error())
	if errors.DomainOf(err) == errors.DomainMail {
		return ExitFailure
	}
	return ExitJobFailed
}

func (d *Dispatcher) runServiceCheck(ctx context.Context) int {
	snap := d.monitor.Check(ctx)
	for _, r := range snap.Results {
		if r.Running {
			d.printf("%s is running", r.Daemon.DisplayName)
		} else if r.Err != nil {
			d.printf("%s could not be checked: %s", r.Daemon.DisplayName, r.Err.Error())
		} else {
			d.printf("%s is NOT running (status %s)", r.Daemon.DisplayName, r.Status)
		}
	}
	if !snap.Healthy {
		return ExitServiceDown
	}
	d.printf("All Backup Exec services are running")
	return ExitOK
}

// validate enforces the required-field table. The universal pair (to,
// password) is checked before branch fields for every mode except service,
// which needs nothing beyond the mode itself.
func validate(mode Mode, inv Invocation) error {
	missing := func(field string) error {
		return errors.New(errors.DispatchMissingParam,
			fmt.Sprintf("mode %s requires %s", mode, field))
	}

	if mode == ModeService {
		return nil
	}
	if inv.To == "" {
		return missing("to")
	}
	if inv.Password == "" {
		return missing("password")
	}

	switch {
	case mode.IsBackup():
		if inv.JobName == "" {
			return missing("jobname")
		}
	case mode == ModeRestore:
		if inv.JobName == "" {
			return missing("jobname")
		}
		if inv.RestoreFolder == "" {
			return missing("restorefolder")
		}
	case mode == ModeReport:
		if inv.ReportName == "" {
			return missing("report")
		}
		if inv.ReportPath == "" {
			return missing("reportpath")
		}
	}
	return nil
}

// mailFields applies the per-invocation defaults: the sender falls back to
// the authenticated user, the subject embeds the current date and the body
// starts as a placeholder until a job log replaces it.
func (d *Dispatcher) mailFields(mode Mode, inv Invocation) jobs.MailFields {
	from := inv.From
	if from == "" {
		from = inv.User
	}

	subject := inv.Subject
	if subject == "" {
		subject = fmt.Sprintf("Backup Exec %s run %s", mode, d.now().Format("2006-01-02"))
	}

	body := inv.Body
	if body == "" {
		body = "No job log was available for this run."
	}

	return jobs.MailFields{
		From:    from,
		To:      splitRecipients(inv.To),
		Subject: subject,
		Body:    body,
	}
}

// splitRecipients turns a comma-separated recipient list into addresses.
func splitRecipients(to string) []string {
	var recipients []string
	for _, part := range strings.Split(to, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	return recipients
}
