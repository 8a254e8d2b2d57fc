// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stratastor/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratastor/bexec/internal/bemcli"
	"github.com/stratastor/bexec/internal/monitor"
	"github.com/stratastor/bexec/internal/notify"
	"github.com/stratastor/bexec/pkg/errors"
)

// recordingClient counts every vendor call so tests can assert that
// rejected invocations never reach the vendor.
type recordingClient struct {
	calls []string

	jobs         map[string]*bemcli.Job
	statusSeq    map[string][]bemcli.JobStatus
	logHTML      string
	restoreJob   *bemcli.Job
	historyNames []string
	downService  string
}

func (f *recordingClient) record(call string) { f.calls = append(f.calls, call) }

func (f *recordingClient) LookupJob(ctx context.Context, name string) (*bemcli.Job, error) {
	f.record("LookupJob")
	job, ok := f.jobs[name]
	if !ok {
		return nil, errors.New(errors.JobNotFound, "no job named "+name)
	}
	return job, nil
}

func (f *recordingClient) StartJob(ctx context.Context, name string) error {
	f.record("StartJob")
	return nil
}

func (f *recordingClient) JobStatus(ctx context.Context, name string) (bemcli.JobStatus, error) {
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

func (f *recordingClient) LastHistory(ctx context.Context, jobName string) (*bemcli.JobHistory, error) {
	f.record("LastHistory")
	return &bemcli.JobHistory{ID: "hist-1", JobName: jobName}, nil
}

func (f *recordingClient) RenderLog(ctx context.Context, historyID string) (string, error) {
	f.record("RenderLog")
	return f.logHTML, nil
}

func (f *recordingClient) SubmitRestore(ctx context.Context, jobName, redirectPath string) (*bemcli.Job, error) {
	f.record("SubmitRestore")
	return f.restoreJob, nil
}

func (f *recordingClient) GenerateReport(ctx context.Context, reportName, outDir string) (string, error) {
	f.record("GenerateReport")
	return filepath.Join(outDir, reportName+".html"), nil
}

func (f *recordingClient) DeleteAllJobHistory(ctx context.Context) ([]string, error) {
	f.record("DeleteAllJobHistory")
	return f.historyNames, nil
}

func (f *recordingClient) ServiceState(ctx context.Context, serviceName string) (*bemcli.ServiceState, error) {
	f.record("ServiceState " + serviceName)
	if serviceName == f.downService {
		return &bemcli.ServiceState{Name: serviceName, Found: true, Status: "Stopped"}, nil
	}
	return &bemcli.ServiceState{Name: serviceName, Found: true, Status: "Running", Running: true}, nil
}

func (f *recordingClient) SearchCatalog(ctx context.Context, q bemcli.SearchQuery) ([]bemcli.CatalogItem, error) {
	f.record("SearchCatalog")
	return nil, nil
}

type recordingMailer struct {
	sent    []notify.EmailMessage
	sendErr error
}

func (f *recordingMailer) Send(msg notify.EmailMessage) error {
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

func newTestDispatcher(t *testing.T, client bemcli.Client, mailer *recordingMailer, out *bytes.Buffer) *Dispatcher {
	d := NewDispatcher(testLogger(t), client, mailer, out, time.Millisecond, time.Second)
	d.verifyModule = func(string) error { return nil }
	return d
}

func backupInvocation() Invocation {
	return Invocation{
		Option:   "full",
		JobName:  "daily",
		To:       "ops@example.com",
		Password: "secret",
	}
}

func TestParseMode(t *testing.T) {
	for option, want := range map[string]Mode{
		"full":         ModeFull,
		"Incremental":  ModeIncremental,
		"DIFFERENTIAL": ModeDifferential,
		"restore":      ModeRestore,
		"report":       ModeReport,
		"cleanup":      ModeCleanup,
		"service":      ModeService,
	} {
		mode, err := ParseMode(option)
		require.NoError(t, err, option)
		assert.Equal(t, want, mode)
	}

	_, err := ParseMode("")
	assert.True(t, errors.IsCode(err, errors.DispatchMissingMode))
	_, err = ParseMode("weekly")
	assert.True(t, errors.IsCode(err, errors.DispatchUnknownMode))
}

func TestRunMissingModuleExits100BeforeValidation(t *testing.T) {
	client := &recordingClient{}
	mailer := &recordingMailer{}
	var out bytes.Buffer

	d := NewDispatcher(testLogger(t), client, mailer, &out, time.Millisecond, time.Second)
	d.verifyModule = func(path string) error {
		return errors.New(errors.ConfigModuleNotFound, "not installed")
	}

	// The invocation is also missing every parameter; the module check
	// must win.
	code := d.Run(context.Background(), Invocation{})
	assert.Equal(t, ExitModuleMissing, code)
	assert.Empty(t, client.calls)
	assert.Empty(t, mailer.sent)
}

func TestRunMissingParamsExit200WithoutSideEffects(t *testing.T) {
	tests := []struct {
		name string
		inv  Invocation
	}{
		{"no mode", Invocation{}},
		{"unknown mode", Invocation{Option: "weekly"}},
		{"backup without to", Invocation{Option: "full", JobName: "daily", Password: "x"}},
		{"backup without password", Invocation{Option: "incremental", JobName: "daily", To: "ops@example.com"}},
		{"backup without jobname", Invocation{Option: "differential", To: "ops@example.com", Password: "x"}},
		{"restore without jobname", Invocation{Option: "restore", To: "ops@example.com", Password: "x", RestoreFolder: `E:\r`}},
		{"restore without folder", Invocation{Option: "restore", To: "ops@example.com", Password: "x", JobName: "daily"}},
		{"report without name", Invocation{Option: "report", To: "ops@example.com", Password: "x", ReportPath: `C:\reports`}},
		{"report without path", Invocation{Option: "report", To: "ops@example.com", Password: "x", ReportName: "Job Summary"}},
		{"cleanup without to", Invocation{Option: "cleanup", Password: "x"}},
		{"cleanup without password", Invocation{Option: "cleanup", To: "ops@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &recordingClient{}
			mailer := &recordingMailer{}
			var out bytes.Buffer

			code := newTestDispatcher(t, client, mailer, &out).Run(context.Background(), tt.inv)
			assert.Equal(t, ExitMissingParam, code)
			assert.Empty(t, client.calls, "rejected invocation must not touch the vendor")
			assert.Empty(t, mailer.sent, "rejected invocation must not send mail")
		})
	}
}

func TestRunServiceModeNeedsNothingBeyondMode(t *testing.T) {
	client := &recordingClient{}
	var out bytes.Buffer

	code := newTestDispatcher(t, client, &recordingMailer{}, &out).
		Run(context.Background(), Invocation{Option: "service"})
	assert.Equal(t, ExitOK, code)
}

func TestRunBackupSucceeded(t *testing.T) {
	client := &recordingClient{
		jobs:      map[string]*bemcli.Job{"daily": {Name: "daily"}},
		statusSeq: map[string][]bemcli.JobStatus{"daily": {bemcli.StatusActive, bemcli.StatusSucceeded}},
		logHTML:   "<p>ok</p>",
	}
	mailer := &recordingMailer{}
	var out bytes.Buffer

	code := newTestDispatcher(t, client, mailer, &out).Run(context.Background(), backupInvocation())
	assert.Equal(t, ExitOK, code)
	require.Len(t, mailer.sent, 1, "exactly one email for a successful run")
	assert.Contains(t, out.String(), `Job "daily" succeeded`)
}

func TestRunBackupFailedStatusExits101AfterMail(t *testing.T) {
	client := &recordingClient{
		jobs:      map[string]*bemcli.Job{"daily": {Name: "daily"}},
		statusSeq: map[string][]bemcli.JobStatus{"daily": {bemcli.StatusError}},
		logHTML:   "<p>boom</p>",
	}
	mailer := &recordingMailer{}
	var out bytes.Buffer

	code := newTestDispatcher(t, client, mailer, &out).Run(context.Background(), backupInvocation())
	assert.Equal(t, ExitJobFailed, code)
	require.Len(t, mailer.sent, 1, "exactly one email for a failed run")
	assert.Equal(t, "<p>boom</p>", mailer.sent[0].Body)
}

func TestRunBackupJobNotFoundExits101(t *testing.T) {
	client := &recordingClient{jobs: map[string]*bemcli.Job{}}
	mailer := &recordingMailer{}
	var out bytes.Buffer

	code := newTestDispatcher(t, client, mailer, &out).Run(context.Background(), backupInvocation())
	assert.Equal(t, ExitJobFailed, code)
	assert.Empty(t, mailer.sent)
}

func TestRunBackupMailFailureExits1(t *testing.T) {
	client := &recordingClient{
		jobs:      map[string]*bemcli.Job{"daily": {Name: "daily"}},
		statusSeq: map[string][]bemcli.JobStatus{"daily": {bemcli.StatusSucceeded}},
	}
	mailer := &recordingMailer{sendErr: errors.New(errors.MailDialFailed, "connection refused")}
	var out bytes.Buffer

	code := newTestDispatcher(t, client, mailer, &out).Run(context.Background(), backupInvocation())
	assert.Equal(t, ExitFailure, code)
}

func TestRunRestore(t *testing.T) {
	client := &recordingClient{
		jobs:       map[string]*bemcli.Job{"daily": {Name: "daily"}},
		restoreJob: &bemcli.Job{Name: "Restore of daily"},
		statusSeq:  map[string][]bemcli.JobStatus{"Restore of daily": {bemcli.StatusSucceeded}},
	}
	mailer := &recordingMailer{}
	var out bytes.Buffer

	inv := backupInvocation()
	inv.Option = "restore"
	inv.RestoreFolder = `E:\restore`

	code := newTestDispatcher(t, client, mailer, &out).Run(context.Background(), inv)
	assert.Equal(t, ExitOK, code)
	require.Len(t, mailer.sent, 1)
}

func TestRunReport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Job Summary.html"), []byte("<html/>"), 0o644))

	client := &recordingClient{}
	mailer := &recordingMailer{}
	var out bytes.Buffer

	inv := Invocation{
		Option:     "report",
		To:         "ops@example.com",
		Password:   "x",
		ReportName: "Job Summary",
		ReportPath: dir,
	}
	code := newTestDispatcher(t, client, mailer, &out).Run(context.Background(), inv)
	assert.Equal(t, ExitOK, code)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "<html/>", mailer.sent[0].Body)
}

func TestRunCleanupOutput(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		client := &recordingClient{}
		var out bytes.Buffer
		code := newTestDispatcher(t, client, &recordingMailer{}, &out).
			Run(context.Background(), Invocation{Option: "cleanup", To: "ops@example.com", Password: "x"})
		assert.Equal(t, ExitOK, code)
		assert.Contains(t, out.String(), "No job history found")
	})

	t.Run("lists every affected job", func(t *testing.T) {
		client := &recordingClient{historyNames: []string{"b", "a"}}
		var out bytes.Buffer
		code := newTestDispatcher(t, client, &recordingMailer{}, &out).
			Run(context.Background(), Invocation{Option: "cleanup", To: "ops@example.com", Password: "x"})
		assert.Equal(t, ExitOK, code)
		assert.Contains(t, out.String(), `Deleted history of job "a"`)
		assert.Contains(t, out.String(), `Deleted history of job "b"`)
	})
}

func TestRunServiceCheckFailFast(t *testing.T) {
	for k, daemon := range monitor.Daemons {
		t.Run(fmt.Sprintf("down at position %d", k), func(t *testing.T) {
			client := &recordingClient{downService: daemon.ServiceName}
			var out bytes.Buffer

			code := newTestDispatcher(t, client, &recordingMailer{}, &out).
				Run(context.Background(), Invocation{Option: "service"})
			assert.Equal(t, ExitServiceDown, code)

			// Daemons 1..k reported, k+1..6 never probed.
			require.Len(t, client.calls, k+1)
			for i := 0; i <= k; i++ {
				assert.Equal(t, "ServiceState "+monitor.Daemons[i].ServiceName, client.calls[i])
			}
			assert.Contains(t, out.String(), daemon.DisplayName+" is NOT running")
			for i := 0; i < k; i++ {
				assert.Contains(t, out.String(), monitor.Daemons[i].DisplayName+" is running")
			}
		})
	}
}

func TestRunServiceCheckAllHealthy(t *testing.T) {
	client := &recordingClient{}
	var out bytes.Buffer

	code := newTestDispatcher(t, client, &recordingMailer{}, &out).
		Run(context.Background(), Invocation{Option: "service"})
	assert.Equal(t, ExitOK, code)
	assert.Len(t, client.calls, len(monitor.Daemons))
	assert.Contains(t, out.String(), "All Backup Exec services are running")
}

func TestRunServiceCheckIdempotent(t *testing.T) {
	client := &recordingClient{downService: monitor.Daemons[2].ServiceName}
	d := newTestDispatcher(t, client, &recordingMailer{}, &bytes.Buffer{})

	var out1, out2 bytes.Buffer
	d.out = &out1
	first := d.Run(context.Background(), Invocation{Option: "service"})
	d.out = &out2
	second := d.Run(context.Background(), Invocation{Option: "service"})

	assert.Equal(t, first, second)
	assert.Equal(t, out1.String(), out2.String())
}

func TestMailFieldsDefaults(t *testing.T) {
	d := newTestDispatcher(t, &recordingClient{}, &recordingMailer{}, &bytes.Buffer{})
	d.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

	mail := d.mailFields(ModeFull, Invocation{
		To:   "a@example.com, b@example.com",
		User: "backup@example.com",
	})

	assert.Equal(t, "backup@example.com", mail.From, "sender falls back to the authenticated user")
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, mail.To)
	assert.Equal(t, "Backup Exec full run 2026-03-14", mail.Subject)
	assert.NotEmpty(t, mail.Body)

	explicit := d.mailFields(ModeReport, Invocation{
		To:      "ops@example.com",
		From:    "noreply@example.com",
		Subject: "custom",
		Body:    "hello",
	})
	assert.Equal(t, "noreply@example.com", explicit.From)
	assert.Equal(t, "custom", explicit.Subject)
	assert.Equal(t, "hello", explicit.Body)
}
