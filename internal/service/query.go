package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"super-odds-alerts/internal/affiliate"
	"super-odds-alerts/internal/storage"
)

// ListFilters carries the recognised listing options as received from
// the caller. Zero values mean "no filter"; HideExpired defaults to
// false so expired offers stay visible unless explicitly hidden.
type ListFilters struct {
	Provider    string
	MaxOdd      *decimal.Decimal
	SortBy      string
	HideExpired bool
	Limit       int
}

// providerSentinel reports whether the value is the UI "no filter"
// placeholder. "Todas" is kept for compatibility with the original
// frontend.
func providerSentinel(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all", "todas":
		return true
	default:
		return false
	}
}

// ListSuperOdds serves the filtered, ordered read view. Records from
// providers no longer in the affiliate registry are never returned,
// whatever the other filters say.
func (s *Service) ListSuperOdds(ctx context.Context, filters ListFilters) ([]storage.SuperOdd, error) {
	allowed := make([]string, 0)
	for _, p := range s.registry.List() {
		allowed = append(allowed, p.ID)
	}
	if len(allowed) == 0 {
		return []storage.SuperOdd{}, nil
	}

	query := storage.SuperOddQuery{
		AllowedProviderIDs: allowed,
		HideExpired:        filters.HideExpired,
		SortBy:             storage.ParseSortOrder(filters.SortBy),
		MaxOdd:             filters.MaxOdd,
		Limit:              filters.Limit,
	}
	if !providerSentinel(filters.Provider) {
		query.Provider = strings.TrimSpace(filters.Provider)
	}

	return s.store.ListSuperOdds(ctx, query)
}

// Providers lists the configured affiliate bookmakers for UI filters.
func (s *Service) Providers() []affiliate.Provider {
	return s.registry.List()
}
