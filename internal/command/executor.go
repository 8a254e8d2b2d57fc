// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/stratastor/logger"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	bxerrors "github.com/stratastor/bexec/pkg/errors"
)

// Shell execution timeout when neither the context nor the executor carry one
const defaultShellTimeout = 120 * time.Second

// shellCandidates is the lookup order when no shell is configured. Windows
// PowerShell first, PowerShell Core as fallback.
var shellCandidates = []string{"powershell.exe", "pwsh"}

// Executor runs PowerShell scripts through -EncodedCommand. Scripts never
// touch the command line as plain text, so quoting rules of the host shell
// do not apply.
type Executor struct {
	logger    logger.Logger
	shellBin  string
	extraArgs []string
	timeout   time.Duration
}

// NewExecutor resolves the PowerShell binary and prepares an executor.
// shell may be empty for auto-detection; extraArgs is a shell-quoted string
// of additional arguments inserted before -EncodedCommand.
func NewExecutor(l logger.Logger, shell string, extraArgs string, timeout time.Duration) (*Executor, error) {
	if l == nil {
		return nil, bxerrors.New(bxerrors.CommandInvalidInput, "logger cannot be nil")
	}

	candidates := shellCandidates
	if shell != "" {
		candidates = []string{shell}
	}

	var shellBin string
	for _, name := range candidates {
		if bin, err := exec.LookPath(name); err == nil {
			shellBin = bin
			break
		}
	}
	if shellBin == "" {
		return nil, bxerrors.New(bxerrors.CommandNotFound,
			"no PowerShell binary found in PATH").
			WithMetadata("candidates", strings.Join(candidates, ", "))
	}

	var extra []string
	if extraArgs != "" {
		parsed, err := shellquote.Split(extraArgs)
		if err != nil {
			return nil, bxerrors.Wrap(err, bxerrors.CommandInvalidInput).
				WithMetadata("extra_args", extraArgs)
		}
		extra = parsed
	}

	if timeout <= 0 {
		timeout = defaultShellTimeout
	}

	return &Executor{
		logger:    l,
		shellBin:  shellBin,
		extraArgs: extra,
		timeout:   timeout,
	}, nil
}

// ShellBin returns the resolved PowerShell binary path.
func (e *Executor) ShellBin() string {
	return e.shellBin
}

// EncodeScript converts a script to the base64 UTF-16LE form that
// PowerShell's -EncodedCommand expects.
func EncodeScript(script string) (string, error) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	encoded, _, err := transform.String(enc, script)
	if err != nil {
		return "", bxerrors.Wrap(err, bxerrors.CommandEncoding)
	}
	return base64.StdEncoding.EncodeToString([]byte(encoded)), nil
}

// RunScript executes a PowerShell script and returns its stdout. stderr is
// kept separate so JSON output is never polluted by progress noise.
func (e *Executor) RunScript(ctx context.Context, script string) ([]byte, error) {
	encoded, err := EncodeScript(script)
	if err != nil {
		return nil, err
	}

	// Apply timeout if not already set
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass"}
	args = append(args, e.extraArgs...)
	args = append(args, "-EncodedCommand", encoded)

	// Log the invocation without the encoded blob
	cmdString := e.shellBin + " " + strings.Join(args[:len(args)-1], " ") + " <script>"
	e.logger.Debug("Executing PowerShell script", "cmd", cmdString, "script_len", len(script))

	cmd := exec.CommandContext(ctx, e.shellBin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		e.logger.Error("PowerShell script timed out", "cmd", cmdString)
		return stdout.Bytes(), bxerrors.New(bxerrors.CommandTimeout, "script execution timed out").
			WithMetadata("command", cmdString)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			e.logger.Error("PowerShell script failed",
				"cmd", cmdString,
				"exit_code", exitErr.ExitCode(),
				"stderr", stderr.String())
			return stdout.Bytes(), bxerrors.NewCommandError(cmdString, exitErr.ExitCode(), stderr.String())
		}

		e.logger.Error("PowerShell invocation failed", "cmd", cmdString, "err", err)
		return stdout.Bytes(), bxerrors.Wrap(err, bxerrors.CommandExecution).
			WithMetadata("command", cmdString)
	}

	return stdout.Bytes(), nil
}
