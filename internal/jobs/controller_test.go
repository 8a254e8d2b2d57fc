// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package jobs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stratastor/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratastor/bexec/internal/bemcli"
	"github.com/stratastor/bexec/internal/notify"
	"github.com/stratastor/bexec/pkg/errors"
)

// fakeClient scripts vendor responses and records the calls made.
type fakeClient struct {
	bemcli.Client

	jobs         map[string]*bemcli.Job
	statusSeq    map[string][]bemcli.JobStatus
	history      *bemcli.JobHistory
	historyErr   error
	logHTML      string
	restoreJob   *bemcli.Job
	reportErr    error
	historyNames []string

	started  []string
	restores []string
	rendered []string
	calls    []string
}

func (f *fakeClient) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeClient) LookupJob(ctx context.Context, name string) (*bemcli.Job, error) {
	f.record("LookupJob")
	job, ok := f.jobs[name]
	if !ok {
		return nil, errors.New(errors.JobNotFound, "no job named "+name)
	}
	return job, nil
}

func (f *fakeClient) StartJob(ctx context.Context, name string) error {
	f.record("StartJob")
	f.started = append(f.started, name)
	return nil
}

func (f *fakeClient) JobStatus(ctx context.Context, name string) (bemcli.JobStatus, error) {
	f.record("JobStatus")
	seq := f.statusSeq[name]
	if len(seq) == 0 {
		return bemcli.StatusUnknown, errors.New(errors.JobStatusFailed, "no scripted status")
	}
	status := seq[0]
	if len(seq) > 1 {
		f.statusSeq[name] = seq[1:]
	}
	return status, nil
}

func (f *fakeClient) LastHistory(ctx context.Context, jobName string) (*bemcli.JobHistory, error) {
	f.record("LastHistory")
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if f.history != nil {
		return f.history, nil
	}
	return &bemcli.JobHistory{ID: "hist-1", JobName: jobName}, nil
}

func (f *fakeClient) RenderLog(ctx context.Context, historyID string) (string, error) {
	f.record("RenderLog")
	f.rendered = append(f.rendered, historyID)
	return f.logHTML, nil
}

func (f *fakeClient) SubmitRestore(ctx context.Context, jobName, redirectPath string) (*bemcli.Job, error) {
	f.record("SubmitRestore")
	f.restores = append(f.restores, jobName+" -> "+redirectPath)
	return f.restoreJob, nil
}

func (f *fakeClient) GenerateReport(ctx context.Context, reportName, outDir string) (string, error) {
	f.record("GenerateReport")
	if f.reportErr != nil {
		return "", f.reportErr
	}
	return filepath.Join(outDir, reportName+".html"), nil
}

func (f *fakeClient) DeleteAllJobHistory(ctx context.Context) ([]string, error) {
	f.record("DeleteAllJobHistory")
	return f.historyNames, nil
}

// fakeMailer records sent messages and optionally fails.
type fakeMailer struct {
	sent    []notify.EmailMessage
	sendErr error
}

func (f *fakeMailer) Send(msg notify.EmailMessage) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func testLogger(t *testing.T) logger.Logger {
	l, err := logger.New(logger.Config{LogLevel: "error"})
	require.NoError(t, err)
	return l
}

func newTestController(t *testing.T, client bemcli.Client, mailer Mailer, out *bytes.Buffer) *Controller {
	return NewController(testLogger(t), client, mailer, out, time.Millisecond, time.Second)
}

func testMail() MailFields {
	return MailFields{
		From:    "bexec@example.com",
		To:      []string{"ops@example.com"},
		Subject: "Backup Job daily",
		Body:    "placeholder",
	}
}

func TestRunBackupSucceeded(t *testing.T) {
	client := &fakeClient{
		jobs: map[string]*bemcli.Job{"daily": {Name: "daily", Status: bemcli.StatusScheduled}},
		statusSeq: map[string][]bemcli.JobStatus{
			"daily": {bemcli.StatusActive, bemcli.StatusActive, bemcli.StatusSucceeded},
		},
		logHTML: "<table><tr><td>ok</td></tr></table>",
	}
	mailer := &fakeMailer{}
	var out bytes.Buffer

	err := newTestController(t, client, mailer, &out).RunBackup(context.Background(), "daily", testMail())
	require.NoError(t, err)

	assert.Equal(t, []string{"daily"}, client.started)
	require.Len(t, mailer.sent, 1, "exactly one email per run")
	assert.Equal(t, client.logHTML, mailer.sent[0].Body, "body carries the rendered log")
	assert.True(t, mailer.sent[0].HTML)
	assert.Contains(t, out.String(), `Job "daily" succeeded`)
}

func TestRunBackupFailedStatusStillMails(t *testing.T) {
	client := &fakeClient{
		jobs: map[string]*bemcli.Job{"daily": {Name: "daily"}},
		statusSeq: map[string][]bemcli.JobStatus{
			"daily": {bemcli.StatusActive, bemcli.StatusError},
		},
		logHTML: "<p>failed</p>",
	}
	mailer := &fakeMailer{}
	var out bytes.Buffer

	err := newTestController(t, client, mailer, &out).RunBackup(context.Background(), "daily", testMail())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.JobNotSucceeded))

	require.Len(t, mailer.sent, 1, "failing run still produces exactly one email")
	assert.Contains(t, out.String(), `finished with status Error`)
}

func TestRunBackupSucceededWithExceptionsIsFailure(t *testing.T) {
	client := &fakeClient{
		jobs: map[string]*bemcli.Job{"daily": {Name: "daily"}},
		statusSeq: map[string][]bemcli.JobStatus{
			"daily": {bemcli.StatusSucceededWithExceptions},
		},
	}
	mailer := &fakeMailer{}
	var out bytes.Buffer

	err := newTestController(t, client, mailer, &out).RunBackup(context.Background(), "daily", testMail())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.JobNotSucceeded))
	require.Len(t, mailer.sent, 1)
}

func TestRunBackupJobNotFound(t *testing.T) {
	client := &fakeClient{jobs: map[string]*bemcli.Job{}}
	mailer := &fakeMailer{}
	var out bytes.Buffer

	err := newTestController(t, client, mailer, &out).RunBackup(context.Background(), "missing", testMail())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.JobNotFound))
	assert.Empty(t, client.started, "job must not be started")
	assert.Empty(t, mailer.sent, "no mail for a job that was never run")
}

func TestRunBackupWaitTimeout(t *testing.T) {
	client := &fakeClient{
		jobs: map[string]*bemcli.Job{"daily": {Name: "daily"}},
		statusSeq: map[string][]bemcli.JobStatus{
			"daily": {bemcli.StatusActive},
		},
	}
	mailer := &fakeMailer{}
	var out bytes.Buffer

	ctrl := NewController(testLogger(t), client, mailer, &out, time.Millisecond, 20*time.Millisecond)
	err := ctrl.RunBackup(context.Background(), "daily", testMail())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.JobWaitTimeout))
	assert.Empty(t, mailer.sent)
}

func TestRunBackupMailFailurePropagates(t *testing.T) {
	client := &fakeClient{
		jobs: map[string]*bemcli.Job{"daily": {Name: "daily"}},
		statusSeq: map[string][]bemcli.JobStatus{
			"daily": {bemcli.StatusSucceeded},
		},
	}
	mailer := &fakeMailer{sendErr: errors.New(errors.MailSendFailed, "550 rejected")}
	var out bytes.Buffer

	err := newTestController(t, client, mailer, &out).RunBackup(context.Background(), "daily", testMail())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.MailSendFailed))
}

func TestRunBackupPlaceholderBodyWhenNoLog(t *testing.T) {
	client := &fakeClient{
		jobs: map[string]*bemcli.Job{"daily": {Name: "daily"}},
		statusSeq: map[string][]bemcli.JobStatus{
			"daily": {bemcli.StatusSucceeded},
		},
		logHTML: "",
	}
	mailer := &fakeMailer{}
	var out bytes.Buffer

	err := newTestController(t, client, mailer, &out).RunBackup(context.Background(), "daily", testMail())
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "placeholder", mailer.sent[0].Body)
}

func TestRunBackupRendersLogOfLastHistoryEntry(t *testing.T) {
	client := &fakeClient{
		jobs: map[string]*bemcli.Job{"daily": {Name: "daily"}},
		statusSeq: map[string][]bemcli.JobStatus{
			"daily": {bemcli.StatusSucceeded},
		},
		history: &bemcli.JobHistory{ID: "e41c7a90", JobName: "daily", Status: bemcli.StatusSucceeded},
		logHTML: "<p>run log</p>",
	}
	mailer := &fakeMailer{}
	var out bytes.Buffer

	err := newTestController(t, client, mailer, &out).RunBackup(context.Background(), "daily", testMail())
	require.NoError(t, err)

	assert.Equal(t, []string{"e41c7a90"}, client.rendered, "log is rendered from the history entry")
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "<p>run log</p>", mailer.sent[0].Body)
}

func TestRunBackupPlaceholderWhenHistoryMissing(t *testing.T) {
	client := &fakeClient{
		jobs: map[string]*bemcli.Job{"daily": {Name: "daily"}},
		statusSeq: map[string][]bemcli.JobStatus{
			"daily": {bemcli.StatusSucceeded},
		},
		historyErr: errors.New(errors.JobHistoryEmpty, "no history"),
	}
	mailer := &fakeMailer{}
	var out bytes.Buffer

	err := newTestController(t, client, mailer, &out).RunBackup(context.Background(), "daily", testMail())
	require.NoError(t, err)

	assert.Empty(t, client.rendered, "no log render without a history entry")
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "placeholder", mailer.sent[0].Body)
}

func TestRunRestoreFollowsRestoreJob(t *testing.T) {
	client := &fakeClient{
		jobs:       map[string]*bemcli.Job{"daily": {Name: "daily"}},
		restoreJob: &bemcli.Job{Name: "Restore of daily", Status: bemcli.StatusQueued},
		statusSeq: map[string][]bemcli.JobStatus{
			"Restore of daily": {bemcli.StatusActive, bemcli.StatusSucceeded},
		},
		logHTML: "<p>restored</p>",
	}
	mailer := &fakeMailer{}
	var out bytes.Buffer

	err := newTestController(t, client, mailer, &out).
		RunRestore(context.Background(), "daily", `E:\restore`, testMail())
	require.NoError(t, err)

	require.Len(t, client.restores, 1)
	assert.Equal(t, `daily -> E:\restore`, client.restores[0])
	require.Len(t, mailer.sent, 1)
	assert.Contains(t, out.String(), `Job "Restore of daily" succeeded`)
}

func TestRunRestoreFailedRestoreStatus(t *testing.T) {
	client := &fakeClient{
		jobs:       map[string]*bemcli.Job{"daily": {Name: "daily"}},
		restoreJob: &bemcli.Job{Name: "Restore of daily"},
		statusSeq: map[string][]bemcli.JobStatus{
			"Restore of daily": {bemcli.StatusCanceled},
		},
	}
	mailer := &fakeMailer{}
	var out bytes.Buffer

	err := newTestController(t, client, mailer, &out).
		RunRestore(context.Background(), "daily", `E:\restore`, testMail())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.JobNotSucceeded))
	require.Len(t, mailer.sent, 1)
}

func TestRunReportMailsGeneratedFile(t *testing.T) {
	dir := t.TempDir()
	content := "<html><body>report</body></html>"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Job Summary.html"), []byte(content), 0o644))

	client := &fakeClient{}
	mailer := &fakeMailer{}
	var out bytes.Buffer

	err := newTestController(t, client, mailer, &out).
		RunReport(context.Background(), "Job Summary", dir, testMail())
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, content, mailer.sent[0].Body)
	assert.True(t, mailer.sent[0].HTML)
}

func TestRunReportMissingOutputFile(t *testing.T) {
	client := &fakeClient{}
	mailer := &fakeMailer{}
	var out bytes.Buffer

	err := newTestController(t, client, mailer, &out).
		RunReport(context.Background(), "Job Summary", t.TempDir(), testMail())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ReportReadFailed))
	assert.Empty(t, mailer.sent)
}

func TestRunCleanup(t *testing.T) {
	t.Run("no history", func(t *testing.T) {
		client := &fakeClient{}
		var out bytes.Buffer

		names, err := newTestController(t, client, &fakeMailer{}, &out).RunCleanup(context.Background())
		require.NoError(t, err)
		assert.Empty(t, names)
		assert.Contains(t, out.String(), "No job history found")
	})

	t.Run("reports every affected job sorted", func(t *testing.T) {
		client := &fakeClient{historyNames: []string{"weekly", "daily", "monthly"}}
		var out bytes.Buffer

		names, err := newTestController(t, client, &fakeMailer{}, &out).RunCleanup(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"daily", "monthly", "weekly"}, names)
		assert.Contains(t, out.String(), `Deleted history of job "daily"`)
		assert.Contains(t, out.String(), `Deleted history of job "weekly"`)
	})
}
