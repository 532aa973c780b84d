package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const sweepLeaseName = "session-sweep"

// Sweeper periodically removes expired sessions. Runs never overlap: a local
// mutex guards this process and the Locker lease guards other instances.
type Sweeper struct {
	manager  *Manager
	locker   Locker
	interval time.Duration
	owner    string
	logger   zerolog.Logger

	mu sync.Mutex
}

// NewSweeper creates a sweeper. locker may be nil for a single-instance deployment.
func NewSweeper(manager *Manager, locker Locker, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		manager:  manager,
		locker:   locker,
		interval: interval,
		owner:    uuid.NewString(),
		logger:   logger,
	}
}

// SweepOnce runs a single sweep. ran is false when another sweep was already
// in progress here or elsewhere.
func (s *Sweeper) SweepOnce(ctx context.Context) (removed int, ran bool, err error) {
	if !s.mu.TryLock() {
		return 0, false, nil
	}
	defer s.mu.Unlock()

	if s.locker != nil {
		if err := s.locker.Acquire(ctx, sweepLeaseName, s.owner); err != nil {
			if errors.Is(err, ErrLeaseHeld) {
				return 0, false, nil
			}
			return 0, false, err
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), sweepLeaseName, s.owner); err != nil {
				s.logger.Warn().Err(err).Msg("failed to release sweep lease")
			}
		}()
	}

	removed, err = s.manager.SweepExpired(ctx)
	if err != nil {
		return removed, true, err
	}
	s.logger.Info().Int("removed", removed).Msg("expired sessions swept")
	return removed, true, nil
}

// Run sweeps on every tick until ctx is cancelled. It is meant to be started
// in its own goroutine so request handling is never blocked.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("session sweep failed")
			}
		}
	}
}
