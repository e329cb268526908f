package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SortOrder names a recognised single-key ordering for listings.
type SortOrder string

const (
	// SortDefault applies the composite live-first ordering.
	SortDefault      SortOrder = ""
	SortBoostedDesc  SortOrder = "boosted_desc"
	SortBoostedAsc   SortOrder = "boosted_asc"
	SortGameTimeAsc  SortOrder = "game_time_asc"
	SortGameTimeDesc SortOrder = "game_time_desc"
	SortExpireAsc    SortOrder = "expire_asc"
	SortExpireDesc   SortOrder = "expire_desc"
)

// ParseSortOrder maps a request value onto a known ordering; anything
// unrecognised falls back to the default composite ordering.
func ParseSortOrder(value string) SortOrder {
	switch SortOrder(strings.ToLower(strings.TrimSpace(value))) {
	case SortBoostedDesc:
		return SortBoostedDesc
	case SortBoostedAsc:
		return SortBoostedAsc
	case SortGameTimeAsc:
		return SortGameTimeAsc
	case SortGameTimeDesc:
		return SortGameTimeDesc
	case SortExpireAsc:
		return SortExpireAsc
	case SortExpireDesc:
		return SortExpireDesc
	default:
		return SortDefault
	}
}

// SuperOddQuery describes one filtered, ordered read of the store.
// AllowedProviderIDs is the registry allow-list and is always applied;
// the remaining filters are optional.
type SuperOddQuery struct {
	AllowedProviderIDs []string
	Provider           string
	MaxOdd             *decimal.Decimal
	HideExpired        bool
	SortBy             SortOrder
	Limit              int
	Now                time.Time
}

const superOddColumns = `id,
        provider,
        provider_id,
        link,
        sport_id,
        boosted_odd,
        original_odd,
        description_for_seo,
        market_name,
        selection_name,
        competition_name,
        game_name,
        game_timestamp,
        expire_at_timestamp,
        created_at,
        updated_at`

// SQL renders the query into a statement and its arguments. Expiry is
// evaluated against q.Now so the rendering is deterministic; callers
// leave Now zero to use the current time.
func (q SuperOddQuery) SQL() (string, []any) {
	now := q.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	args := make([]any, 0, 5)
	conds := make([]string, 0, 4)

	args = append(args, q.AllowedProviderIDs)
	conds = append(conds, fmt.Sprintf("provider_id = ANY($%d)", len(args)))

	if q.Provider != "" {
		args = append(args, q.Provider)
		conds = append(conds, fmt.Sprintf("provider = $%d", len(args)))
	}

	if q.MaxOdd != nil {
		args = append(args, q.MaxOdd.String())
		conds = append(conds, fmt.Sprintf("boosted_odd <= $%d", len(args)))
	}

	if q.HideExpired {
		args = append(args, now)
		conds = append(conds, fmt.Sprintf("expire_at_timestamp > $%d", len(args)))
	}

	var order string
	switch q.SortBy {
	case SortBoostedDesc:
		order = "boosted_odd DESC"
	case SortBoostedAsc:
		order = "boosted_odd ASC"
	case SortGameTimeAsc:
		order = "game_timestamp ASC"
	case SortGameTimeDesc:
		order = "game_timestamp DESC"
	case SortExpireAsc:
		order = "expire_at_timestamp ASC"
	case SortExpireDesc:
		order = "expire_at_timestamp DESC"
	default:
		// Live offers first ordered soonest-to-expire, then expired
		// offers most-recently-expired first.
		args = append(args, now)
		n := len(args)
		order = fmt.Sprintf(
			"(expire_at_timestamp > $%d) DESC, "+
				"CASE WHEN expire_at_timestamp > $%d THEN expire_at_timestamp END ASC, "+
				"CASE WHEN expire_at_timestamp <= $%d THEN expire_at_timestamp END DESC",
			n, n, n,
		)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(superOddColumns)
	sb.WriteString("\n    FROM super_odds\n    WHERE ")
	sb.WriteString(strings.Join(conds, "\n      AND "))
	sb.WriteString("\n    ORDER BY ")
	sb.WriteString(order)

	if q.Limit > 0 {
		args = append(args, q.Limit)
		sb.WriteString(fmt.Sprintf("\n    LIMIT $%d", len(args)))
	}

	return sb.String(), args
}
