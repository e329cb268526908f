package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"super-odds-alerts/internal/storage"
)

// Notifier renders records into messages and delivers them outbound.
type Notifier interface {
	NotifySuperOdd(ctx context.Context, odd storage.SuperOdd) error
	NotifyDigest(ctx context.Context, odds []storage.SuperOdd, now time.Time) error
}

// Dispatcher serialises outbound sends over one channel, spacing
// consecutive messages by a fixed gap so steady-state traffic stays
// under the channel rate limit before the reactive 429 backoff ever
// has to kick in.
type Dispatcher struct {
	channel Channel
	gap     time.Duration
	logger  zerolog.Logger

	mu       sync.Mutex
	lastSend time.Time
}

// NewDispatcher wraps a channel with pacing.
func NewDispatcher(channel Channel, gap time.Duration, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		channel: channel,
		gap:     gap,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// NotifySuperOdd delivers the single-offer alert for a newly created record.
func (d *Dispatcher) NotifySuperOdd(ctx context.Context, odd storage.SuperOdd) error {
	if err := d.deliver(ctx, RenderSuperOddAlert(odd)); err != nil {
		return err
	}
	d.logger.Info().Str("key", odd.ID).Str("provider", odd.Provider).Msg("super odd alert sent")
	return nil
}

// NotifyDigest delivers the periodic summary of active offers.
func (d *Dispatcher) NotifyDigest(ctx context.Context, odds []storage.SuperOdd, now time.Time) error {
	if err := d.deliver(ctx, RenderDigest(odds, now)); err != nil {
		return err
	}
	d.logger.Info().Int("offers", len(odds)).Msg("digest sent")
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.gap > 0 && !d.lastSend.IsZero() {
		wait := d.gap - time.Since(d.lastSend)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	err := d.channel.Send(ctx, text)
	d.lastSend = time.Now()
	return err
}

var _ Notifier = (*Dispatcher)(nil)
