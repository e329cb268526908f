package service

import (
	"context"
	"fmt"
	"time"

	"super-odds-alerts/internal/scheduler"
)

// RunDigest drives the periodic summary loop on its own scheduler. It
// shares nothing with the collector loop beyond the store.
func (s *Service) RunDigest(ctx context.Context, sched *scheduler.Scheduler) error {
	return sched.Run(ctx, s.SendDigest)
}

// SendDigest delivers a summary of the top active boosted offers.
func (s *Service) SendDigest(ctx context.Context) error {
	if s.notifier == nil {
		return fmt.Errorf("no notifier configured")
	}

	now := time.Now().UTC()
	odds, err := s.store.ListActiveSuperOdds(ctx, now, s.digestTopN)
	if err != nil {
		return fmt.Errorf("list active super odds: %w", err)
	}

	if err := s.notifier.NotifyDigest(ctx, odds, now); err != nil {
		return fmt.Errorf("dispatch digest: %w", err)
	}

	s.logger.Info().Int("offers", len(odds)).Msg("digest dispatched")
	return nil
}
