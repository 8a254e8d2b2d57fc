// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package jobs drives one backup or restore job from submission to a
// terminal, reportable outcome: locate or submit, poll until the vendor
// reports a terminal status, fetch the rendered log, notify, then classify.
package jobs

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/stratastor/logger"
	"golang.org/x/exp/slices"

	"github.com/stratastor/bexec/internal/bemcli"
	"github.com/stratastor/bexec/internal/notify"
	"github.com/stratastor/bexec/pkg/errors"
)

// Mailer is the notification sink. Production uses notify.Mailer; tests
// substitute a recording double.
type Mailer interface {
	Send(msg notify.EmailMessage) error
}

// MailFields is the per-invocation addressing for the outcome notification.
// The body acts as a placeholder and is replaced by the rendered job log
// when one is available.
type MailFields struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Controller runs one job lifecycle per call. It owns no job state; the
// vendor does.
type Controller struct {
	logger       logger.Logger
	client       bemcli.Client
	mailer       Mailer
	out          io.Writer
	pollInterval time.Duration
	waitTimeout  time.Duration
}

func NewController(
	l logger.Logger,
	client bemcli.Client,
	mailer Mailer,
	out io.Writer,
	pollInterval time.Duration,
	waitTimeout time.Duration,
) *Controller {
	return &Controller{
		logger:       l,
		client:       client,
		mailer:       mailer,
		out:          out,
		pollInterval: pollInterval,
		waitTimeout:  waitTimeout,
	}
}

func (c *Controller) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// RunBackup triggers the named backup job, waits for it to finish, mails
// the rendered log and classifies the outcome. The notification goes out
// before the outcome is judged, so a failing run still produces mail.
func (c *Controller) RunBackup(ctx context.Context, jobName string, mail MailFields) error {
	job, err := c.client.LookupJob(ctx, jobName)
	if err != nil {
		return err
	}
	c.printf("Found job %q (status %s)", job.Name, job.Status)

	if err := c.client.StartJob(ctx, jobName); err != nil {
		return err
	}
	c.printf("Started job %q, waiting for completion", jobName)

	if _, err := c.waitForTerminal(ctx, jobName); err != nil {
		return err
	}

	return c.reportOutcome(ctx, jobName, mail)
}

// RunRestore submits a filesystem restore of the source job's most recent
// run redirected to restoreFolder, then follows the restore job the same
// way RunBackup follows a backup.
func (c *Controller) RunRestore(ctx context.Context, jobName, restoreFolder string, mail MailFields) error {
	if _, err := c.client.LookupJob(ctx, jobName); err != nil {
		return err
	}

	restoreJob, err := c.client.SubmitRestore(ctx, jobName, restoreFolder)
	if err != nil {
		return err
	}
	c.printf("Submitted restore job %q redirected to %s", restoreJob.Name, restoreFolder)

	if _, err := c.waitForTerminal(ctx, restoreJob.Name); err != nil {
		return err
	}

	// The restore job's status decides the outcome, not the source job's.
	return c.reportOutcome(ctx, restoreJob.Name, mail)
}

// RunReport generates the named report under reportDir, reads the produced
// HTML back and mails it. Report generation is synchronous; there is no
// lifecycle to follow.
func (c *Controller) RunReport(ctx context.Context, reportName, reportDir string, mail MailFields) error {
	path, err := c.client.GenerateReport(ctx, reportName, reportDir)
	if err != nil {
		return err
	}
	c.printf("Generated report %q at %s", reportName, path)

	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ReportReadFailed).WithMetadata("path", path)
	}

	msg := notify.EmailMessage{
		From:    mail.From,
		To:      mail.To,
		Subject: mail.Subject,
		Body:    string(content),
		HTML:    true,
	}
	if err := c.mailer.Send(msg); err != nil {
		return err
	}
	c.printf("Report sent to %v", mail.To)
	return nil
}

// RunCleanup deletes the history of every job and returns the affected job
// names sorted for stable output.
func (c *Controller) RunCleanup(ctx context.Context) ([]string, error) {
	names, err := c.client.DeleteAllJobHistory(ctx)
	if err != nil {
		return nil, err
	}
	slices.Sort(names)

	if len(names) == 0 {
		c.printf("No job history found")
	} else {
		for _, name := range names {
			c.printf("Deleted history of job %q", name)
		}
	}
	return names, nil
}

// waitForTerminal polls the job status until the vendor reports a terminal
// state. The wait is bounded by waitTimeout; hitting it is a JobWaitTimeout
// error, not a silent hang.
func (c *Controller) waitForTerminal(ctx context.Context, jobName string) (bemcli.JobStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.client.JobStatus(ctx, jobName)
		if err != nil {
			return bemcli.StatusUnknown, err
		}
		if status.Terminal() {
			c.logger.Info("Job reached terminal state", "job", jobName, "status", status)
			return status, nil
		}
		c.logger.Debug("Job still running", "job", jobName, "status", status)

		select {
		case <-ctx.Done():
			return status, errors.New(errors.JobWaitTimeout,
				fmt.Sprintf("job %q did not finish within %s", jobName, c.waitTimeout)).
				WithMetadata("last_status", string(status))
		case <-ticker.C:
		}
	}
}

// reportOutcome resolves the job's most recent history entry, mails its log
// rendered as HTML, then fetches the status fresh and classifies it. The
// fresh fetch guards against a late state change between the wait returning
// and the mail going out; "wait returned" and "wait returned with success"
// are different facts.
func (c *Controller) reportOutcome(ctx context.Context, jobName string, mail MailFields) error {
	body := mail.Body
	hist, err := c.client.LastHistory(ctx, jobName)
	if err != nil {
		c.logger.Warn("Could not fetch job history, mailing placeholder body", "job", jobName, "err", err)
	} else {
		html, err := c.client.RenderLog(ctx, hist.ID)
		if err != nil {
			c.logger.Warn("Could not fetch job log, mailing placeholder body",
				"job", jobName, "history", hist.ID, "err", err)
		} else if html != "" {
			body = html
		}
	}

	msg := notify.EmailMessage{
		From:    mail.From,
		To:      mail.To,
		Subject: mail.Subject,
		Body:    body,
		HTML:    true,
	}
	if err := c.mailer.Send(msg); err != nil {
		return err
	}
	c.printf("Job log sent to %v", mail.To)

	status, err := c.client.JobStatus(ctx, jobName)
	if err != nil {
		return errors.Wrap(err, errors.JobStatusFailed).WithMetadata("job", jobName)
	}
	if !status.Succeeded() {
		c.printf("Job %q finished with status %s", jobName, status)
		return errors.New(errors.JobNotSucceeded,
			fmt.Sprintf("job %q finished with status %s", jobName, status)).
			WithMetadata("job", jobName).
			WithMetadata("status", string(status))
	}

	c.printf("Job %q succeeded", jobName)
	return nil
}
