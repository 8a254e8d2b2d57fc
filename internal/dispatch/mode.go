// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"fmt"
	"strings"

	"github.com/stratastor/bexec/pkg/errors"
)

// Mode is one of the mutually exclusive operations a run performs. Exactly
// one mode is active per invocation.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeFull
	ModeIncremental
	ModeDifferential
	ModeRestore
	ModeReport
	ModeCleanup
	ModeService
)

var modeNames = map[Mode]string{
	ModeFull:         "full",
	ModeIncremental:  "incremental",
	ModeDifferential: "differential",
	ModeRestore:      "restore",
	ModeReport:       "report",
	ModeCleanup:      "cleanup",
	ModeService:      "service",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// IsBackup reports whether the mode runs a backup job. The three backup
// flavors differ only in which vendor job they name, not in control flow.
func (m Mode) IsBackup() bool {
	return m == ModeFull || m == ModeIncremental || m == ModeDifferential
}

// ParseMode maps the operator-supplied option string to a Mode. Matching is
// case-insensitive; empty and unrecognized values are rejected.
func ParseMode(option string) (Mode, error) {
	if option == "" {
		return ModeUnknown, errors.New(errors.DispatchMissingMode, "no mode selected")
	}
	normalized := strings.ToLower(strings.TrimSpace(option))
	for mode, name := range modeNames {
		if normalized == name {
			return mode, nil
		}
	}
	return ModeUnknown, errors.New(errors.DispatchUnknownMode,
		fmt.Sprintf("unknown mode %q", option))
}
