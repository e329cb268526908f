package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"super-odds-alerts/internal/storage"
)

// SimulateAlert sends a synthetic super-odd alert through the configured
// channel, useful to verify bot token and chat wiring end to end.
func (a *App) SimulateAlert(ctx context.Context, boosted, original decimal.Decimal) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("telegram is not enabled")
	}

	registry := a.newRegistry()
	providers := registry.List()
	if len(providers) == 0 {
		return errors.New("no affiliated providers configured")
	}
	provider := providers[0]

	now := time.Now().UTC()
	odd := storage.SuperOdd{
		ID:                "simulated",
		Provider:          provider.Name,
		ProviderID:        provider.ID,
		Link:              provider.Link,
		SportID:           "soccer",
		BoostedOdd:        boosted,
		MarketName:        "Correct Score",
		SelectionName:     "2:0",
		CompetitionName:   "Simulated League",
		GameName:          "Simulated Home vs Simulated Away",
		GameTimestamp:     now.Add(2 * time.Hour),
		ExpireAtTimestamp: now.Add(90 * time.Minute),
	}
	if !original.IsZero() {
		odd.OriginalOdd = &original
	}

	return notifier.NotifySuperOdd(ctx, odd)
}
