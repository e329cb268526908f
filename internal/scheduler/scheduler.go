package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked on every interval.
type TickFunc func(ctx context.Context) error

// Options tune scheduler behaviour.
type Options struct {
	Interval       time.Duration
	StartupDelay   time.Duration
	RunImmediately bool
}

// Scheduler drives fixed-interval execution of a job. Ticks run
// synchronously in the loop, so a slow pass delays the next tick
// instead of overlapping it.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking tick on each interval until ctx is cancelled.
// Tick errors are logged, never fatal; the loop keeps going.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := sleepCtx(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	if s.opts.RunImmediately {
		s.execute(ctx, tick)
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.execute(ctx, tick)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, tick TickFunc) {
	start := time.Now()
	if err := tick(ctx); err != nil {
		s.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("tick execution failed")
		return
	}
	s.logger.Debug().Dur("elapsed", time.Since(start)).Msg("tick executed")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
