package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper runs Sweep on a cron schedule for backends that keep expired
// windows around (memory, sqlite).
//
// Common schedules:
//   - "*/5 * * * *"  - every five minutes
//   - "0 * * * *"    - hourly
type Sweeper struct {
	target   Sweepable
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper for target. An empty schedule disables it.
func NewSweeper(target Sweepable, schedule string) *Sweeper {
	return &Sweeper{
		target:   target,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "storage.sweeper"),
	}
}

// Start begins scheduled sweeping. It returns an error if the schedule does
// not parse; a disabled sweeper starts successfully and does nothing.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.schedule == "" || s.target == nil {
		s.logger.Info("sweep schedule not configured, sweeper disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, s.run)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("sweeper started", "schedule", s.schedule)
	return nil
}

// Stop halts scheduled sweeping and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.target.Sweep(ctx, time.Now())
	if err != nil {
		s.logger.Warn("sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Debug("sweep completed", "removed", removed)
	}
}
