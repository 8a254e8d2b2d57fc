// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New creates a BexecError from a registered code. Unregistered codes get a
// generic message so callers never have to nil-check.
func New(code ErrorCode, details string) *BexecError {
	def, ok := errorDefinitions[code]
	if !ok {
		def = struct {
			message    string
			domain     Domain
			httpStatus int
		}{"Unknown error", DomainDispatch, http.StatusInternalServerError}
	}
	return &BexecError{
		Code:       code,
		Domain:     def.domain,
		Message:    def.message,
		Details:    details,
		HTTPStatus: def.httpStatus,
	}
}

// Wrap attaches a registered code to an underlying error, preserving it for
// errors.Is/errors.As chains.
func Wrap(err error, code ErrorCode) *BexecError {
	be := New(code, "")
	if err != nil {
		be.Details = err.Error()
		be.cause = err
	}
	return be
}

// WithMetadata adds a contextual key-value pair and returns the error for
// chaining.
func (e *BexecError) WithMetadata(key, value string) *BexecError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

func (e *BexecError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s-%d] %s: %s", e.Domain, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s-%d] %s", e.Domain, e.Code, e.Message)
}

func (e *BexecError) Unwrap() error {
	return e.cause
}

// IsCode reports whether err is (or wraps) a BexecError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var be *BexecError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// DomainOf returns the domain of err, or an empty Domain when err is not a
// BexecError.
func DomainOf(err error) Domain {
	var be *BexecError
	if errors.As(err, &be) {
		return be.Domain
	}
	return ""
}

// CodeOf returns the error code of err, or 0 when err carries none.
func CodeOf(err error) ErrorCode {
	var be *BexecError
	if errors.As(err, &be) {
		return be.Code
	}
	return 0
}

// NewCommandError builds a command execution failure with the command line,
// exit code and captured output attached as metadata.
func NewCommandError(cmdLine string, exitCode int, output string) *BexecError {
	return New(CommandExecution, "").
		WithMetadata("command", cmdLine).
		WithMetadata("exit_code", fmt.Sprintf("%d", exitCode)).
		WithMetadata("output", output)
}
