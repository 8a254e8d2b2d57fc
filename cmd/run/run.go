// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package run implements the operator entrypoint: one invocation, one mode,
// one exit code. Schedulers call this command and branch on the code.
package run

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stratastor/logger"

	"github.com/stratastor/bexec/config"
	"github.com/stratastor/bexec/internal/bemcli"
	"github.com/stratastor/bexec/internal/command"
	"github.com/stratastor/bexec/internal/dispatch"
	"github.com/stratastor/bexec/internal/notify"
)

var inv dispatch.Invocation

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one Backup Exec operation and exit with its status code",
		Long: `Run one Backup Exec operation selected by --option:

  full | incremental | differential   start the named backup job and follow it
  restore                             restore the job's last run to a folder
  report                              generate a report and mail it
  cleanup                             delete all job history
  service                             check that the Backup Exec services run

Exit codes: 0 success, 100 BEMCLI module missing, 200 missing parameter,
101 job did not succeed, 300 a service is down.`,
		Run: runOnce,
	}

	flags := cmd.Flags()
	flags.StringVar(&inv.Option, "option", "", "Operation mode (full|incremental|differential|restore|report|cleanup|service)")
	flags.StringVar(&inv.JobName, "jobname", "", "Backup Exec job name")
	flags.StringVar(&inv.RestoreFolder, "restorefolder", "", "Redirect target folder for restore mode")
	flags.StringVar(&inv.ModulePath, "modulepath", "", "BEMCLI module path (defaults to the standard install location)")
	flags.StringVar(&inv.ReportName, "report", "", "Report name for report mode")
	flags.StringVar(&inv.ReportPath, "reportpath", "", "Output directory for the generated report")
	flags.StringVar(&inv.SMTPHost, "smtp", "", "SMTP server host")
	flags.IntVar(&inv.SMTPPort, "port", 0, "SMTP server port")
	flags.StringVar(&inv.To, "to", "", "Notification recipients, comma separated")
	flags.StringVar(&inv.From, "from", "", "Notification sender address")
	flags.StringVar(&inv.User, "user", "", "SMTP username")
	flags.StringVar(&inv.Password, "password", "", "SMTP password")
	flags.StringVar(&inv.Subject, "subject", "", "Mail subject (defaults to a dated subject line)")
	flags.StringVar(&inv.Body, "body", "", "Mail body placeholder used when no job log is available")

	return cmd
}

func runOnce(cmd *cobra.Command, args []string) {
	cfg := config.GetConfig()
	l, err := logger.NewTag(config.NewLoggerConfig(cfg), "run")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(dispatch.ExitFailure)
	}

	applyConfigDefaults(cfg)

	timeout, err := command.ParseTimeout(cfg.BEMCLI.Timeout)
	if err != nil {
		fmt.Println("Invalid bemcli.timeout in configuration:", err)
		os.Exit(dispatch.ExitFailure)
	}
	pollInterval, err := command.ParseTimeout(cfg.Jobs.PollInterval)
	if err != nil {
		fmt.Println("Invalid jobs.pollInterval in configuration:", err)
		os.Exit(dispatch.ExitFailure)
	}
	waitTimeout, err := command.ParseTimeout(cfg.Jobs.WaitTimeout)
	if err != nil {
		fmt.Println("Invalid jobs.waitTimeout in configuration:", err)
		os.Exit(dispatch.ExitFailure)
	}

	// The module path is the tool's one hard dependency; when it cannot be
	// resolved nothing else runs, not even parameter validation.
	client, err := bemcli.NewPowerShellClient(l, inv.ModulePath, cfg.BEMCLI.Shell, cfg.BEMCLI.ExtraArgs, timeout)
	if err != nil {
		fmt.Println("Backup Exec integration unavailable:", err)
		os.Exit(dispatch.ExitModuleMissing)
	}

	mailer := notify.NewMailer(l, notify.SMTPConfig{
		Host:     inv.SMTPHost,
		Port:     inv.SMTPPort,
		Username: inv.User,
		Password: inv.Password,
		StartTLS: cfg.SMTP.StartTLS,
	})

	d := dispatch.NewDispatcher(l, client, mailer, os.Stdout, pollInterval, waitTimeout)
	if code := d.Run(cmd.Context(), inv); code != dispatch.ExitOK {
		os.Exit(code)
	}
}

// applyConfigDefaults fills invocation fields the operator left empty from
// the loaded configuration.
func applyConfigDefaults(cfg *config.Config) {
	if inv.ModulePath == "" {
		inv.ModulePath = cfg.BEMCLI.ModulePath
	}
	if inv.SMTPHost == "" {
		inv.SMTPHost = cfg.SMTP.Host
	}
	if inv.SMTPPort == 0 {
		inv.SMTPPort = cfg.SMTP.Port
	}
	if inv.From == "" {
		inv.From = cfg.SMTP.From
	}
	if inv.User == "" {
		inv.User = cfg.SMTP.Username
	}
}
