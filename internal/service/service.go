package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"super-odds-alerts/internal/affiliate"
	"super-odds-alerts/internal/config"
	"super-odds-alerts/internal/feed"
	"super-odds-alerts/internal/metrics"
	"super-odds-alerts/internal/notify"
	"super-odds-alerts/internal/scheduler"
	"super-odds-alerts/internal/storage"
)

// Service orchestrates feed ingestion, persistence, queries, and alerting.
type Service struct {
	feed     feed.SnapshotFetcher
	store    storage.SuperOddStore
	registry affiliate.Registry
	notifier notify.Notifier
	logger   zerolog.Logger

	digestTopN int
	locker     storage.AdvisoryLocker
	lockKey    int64
}

// New constructs the collector service. The notifier may be nil, which
// disables outbound alerts but not ingestion.
func New(cfg *config.Config, feedClient feed.SnapshotFetcher, store storage.SuperOddStore, registry affiliate.Registry, notifier notify.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	topN := 5
	var lockKey int64
	if cfg != nil {
		if cfg.Digest.TopN > 0 {
			topN = cfg.Digest.TopN
		}
		lockKey = cfg.Collector.AdvisoryLockKey
	}

	return &Service{
		feed:       feedClient,
		store:      store,
		registry:   registry,
		notifier:   notifier,
		logger:     logger.With().Str("component", "collector").Logger(),
		digestTopN: topN,
		locker:     locker,
		lockKey:    lockKey,
	}
}

// RunCollector drives the ingestion loop on the given scheduler.
func (s *Service) RunCollector(ctx context.Context, sched *scheduler.Scheduler) error {
	return sched.Run(ctx, func(ctx context.Context) error {
		_, err := s.CollectLocked(ctx)
		return err
	})
}

// CollectLocked runs one pass guarded by the advisory lock, so at most
// one instance reconciles at a time. When the lock is held elsewhere the
// pass is skipped, not queued.
func (s *Service) CollectLocked(ctx context.Context) (int, error) {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return 0, err
	}
	if !proceed {
		s.logger.Debug().Msg("skip pass because advisory lock held elsewhere")
		metrics.CollectorRuns.WithLabelValues("skipped").Inc()
		return 0, nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.Collect(ctx)
}

// Collect fetches one feed snapshot and reconciles it against the store.
// Records are processed strictly in feed order; a bad record is logged
// and skipped so the rest of the snapshot still lands. The returned
// count covers records that reached a terminal create or update outcome.
func (s *Service) Collect(ctx context.Context) (int, error) {
	snapshot, err := s.feed.FetchSnapshot(ctx)
	if err != nil {
		metrics.CollectorRuns.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("fetch snapshot: %w", err)
	}

	s.logger.Info().Int("records", len(snapshot)).Msg("snapshot received")

	processed := 0
	for _, raw := range snapshot {
		provider, ok := s.registry.Resolve(raw.ProviderID)
		if !ok {
			s.logger.Warn().Str("key", raw.UniqueKey).Str("provider_id", raw.ProviderID).
				Msg("provider not affiliated, skipping record")
			metrics.RecordOutcomes.WithLabelValues(metrics.OutcomeFiltered).Inc()
			continue
		}

		odd := buildSuperOdd(raw, provider)

		created, err := s.store.FindOrCreateSuperOdd(ctx, odd)
		if err != nil {
			s.logger.Error().Err(err).Str("key", odd.ID).Msg("failed to persist super odd")
			metrics.RecordOutcomes.WithLabelValues(metrics.OutcomeFailed).Inc()
			continue
		}

		if created {
			metrics.RecordOutcomes.WithLabelValues(metrics.OutcomeCreated).Inc()
			s.logger.Info().Str("key", odd.ID).Str("provider", odd.Provider).Msg("new super odd stored")
			s.notifyCreated(ctx, odd)
		} else {
			if err := s.store.UpdateSuperOdd(ctx, odd); err != nil {
				s.logger.Error().Err(err).Str("key", odd.ID).Msg("failed to update super odd")
				metrics.RecordOutcomes.WithLabelValues(metrics.OutcomeFailed).Inc()
				continue
			}
			metrics.RecordOutcomes.WithLabelValues(metrics.OutcomeUpdated).Inc()
			s.logger.Debug().Str("key", odd.ID).Msg("super odd updated")
		}

		processed++
	}

	metrics.CollectorRuns.WithLabelValues("ok").Inc()
	return processed, nil
}

// notifyCreated alerts on a freshly created record, but only while the
// offer is still valid. Delivery failures are logged and dropped so the
// reconciliation loop is never blocked by the outbound channel.
func (s *Service) notifyCreated(ctx context.Context, odd storage.SuperOdd) {
	if s.notifier == nil {
		return
	}
	if !odd.IsActive(time.Now().UTC()) {
		return
	}

	if err := s.notifier.NotifySuperOdd(ctx, odd); err != nil {
		s.logger.Error().Err(err).Str("key", odd.ID).Msg("failed to dispatch super odd alert")
		metrics.Notifications.WithLabelValues("failed").Inc()
		return
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

func buildSuperOdd(raw feed.RawSuperOdd, provider affiliate.Provider) storage.SuperOdd {
	odd := storage.SuperOdd{
		ID:                raw.UniqueKey,
		Provider:          provider.Name,
		ProviderID:        raw.ProviderID,
		Link:              provider.Link,
		SportID:           raw.SportID,
		BoostedOdd:        raw.BoostedOdd,
		MarketName:        raw.MarketName,
		SelectionName:     raw.SelectionName,
		CompetitionName:   raw.CompetitionName,
		GameName:          raw.GameName,
		GameTimestamp:     time.Unix(raw.GameTimestamp, 0).UTC(),
		ExpireAtTimestamp: time.Unix(raw.ExpireAtTimestamp, 0).UTC(),
	}

	if !raw.OriginalOdd.IsZero() {
		original := raw.OriginalOdd
		odd.OriginalOdd = &original
	}
	if raw.DescriptionForSEO != "" {
		description := raw.DescriptionForSEO
		odd.DescriptionForSEO = &description
	}

	return odd
}
