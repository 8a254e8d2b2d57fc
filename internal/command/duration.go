// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"time"

	bxerrors "github.com/stratastor/bexec/pkg/errors"
)

// ParseTimeout parses a config duration string like "120s" or "12h". An
// empty string maps to zero, letting callers apply their own default.
func ParseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, bxerrors.Wrap(err, bxerrors.CommandInvalidInput).
			WithMetadata("duration", s)
	}
	if d < 0 {
		return 0, bxerrors.New(bxerrors.CommandInvalidInput, "duration cannot be negative").
			WithMetadata("duration", s)
	}
	return d, nil
}
