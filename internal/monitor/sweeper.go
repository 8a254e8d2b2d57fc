// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/stratastor/logger"

	"github.com/stratastor/bexec/pkg/errors"
)

// Sweeper runs the daemon check on a schedule and caches the latest
// snapshot, so the sidecar's health endpoint answers from memory instead of
// spawning a PowerShell probe per request.
type Sweeper struct {
	logger    logger.Logger
	monitor   *Monitor
	interval  time.Duration
	scheduler gocron.Scheduler

	mu   sync.RWMutex
	last *Snapshot
}

func NewSweeper(l logger.Logger, m *Monitor, interval time.Duration) *Sweeper {
	return &Sweeper{
		logger:   l,
		monitor:  m,
		interval: interval,
	}
}

// Start runs one sweep immediately, then repeats on the configured
// interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return errors.Wrap(err, errors.HealthSchedulerFailed)
	}
	s.scheduler = scheduler

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.sweep(ctx) }),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return errors.Wrap(err, errors.HealthSchedulerFailed)
	}

	scheduler.Start()
	s.logger.Info("Health sweeper started", "interval", s.interval.String())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		if err := s.scheduler.Shutdown(); err != nil {
			s.logger.Warn("Health sweeper shutdown error", "err", err)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	snap := s.monitor.Check(ctx)
	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()

	if down := snap.FirstDown(); down != nil {
		s.logger.Warn("Health sweep found daemon down", "service", down.Daemon.ServiceName)
	}
}

// Latest returns the most recent snapshot, or a HealthSnapshotStale error
// when no sweep has completed yet.
func (s *Sweeper) Latest() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, errors.New(errors.HealthSnapshotStale, "no sweep has completed yet")
	}
	return s.last, nil
}
