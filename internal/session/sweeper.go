package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/vidora/vidora/internal/store"
)

// Sweeper periodically runs the refresh-token sweep and clears expired signup
// challenges, so stale records don't accumulate in the store indefinitely.
type Sweeper struct {
	Manager  *Manager
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSweeper creates a sweeper with the given interval.
// If interval is 0 or negative, defaults to 24 hours.
func NewSweeper(manager *Manager, st store.Store, logger *slog.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &Sweeper{
		Manager:  manager,
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() for a
// graceful shutdown.
func (s *Sweeper) Start() {
	go s.run()
	s.Logger.Info("session sweeper started", "interval", s.Interval)
}

// Stop shuts down the background worker, blocking until any in-progress
// sweep has finished.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("session sweeper stopped")
}

func (s *Sweeper) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run once immediately on startup
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep performs one cleanup pass. Each step is independent; a failure in
// one doesn't stop the others.
func (s *Sweeper) sweep() {
	ctx := context.Background()

	result, err := s.Manager.SweepExpiredRefreshTokens(ctx)
	if err != nil {
		s.Logger.Error("refresh token sweep failed", "err", err)
	} else {
		s.Logger.Info("refresh token sweep completed",
			"expired", result.Expired,
			"valid", result.Valid,
		)
	}

	if err := s.Store.SignupChallenges().DeleteExpired(ctx); err != nil {
		s.Logger.Error("failed to delete expired signup challenges", "err", err)
	}
}
