package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// SuperOdd represents a persisted boosted-odds offer. The id is the
// feed-assigned unique key and stays stable across polls; every other
// field may be rewritten by a later observation of the same key.
type SuperOdd struct {
	ID                string
	Provider          string
	ProviderID        string
	Link              string
	SportID           string
	BoostedOdd        decimal.Decimal
	OriginalOdd       *decimal.Decimal
	DescriptionForSEO *string
	MarketName        string
	SelectionName     string
	CompetitionName   string
	GameName          string
	GameTimestamp     time.Time
	ExpireAtTimestamp time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsActive reports whether the offer has not yet expired at now.
// Expiry is always derived from expire_at_timestamp; there is no stored
// flag that could drift from it.
func (o SuperOdd) IsActive(now time.Time) bool {
	return now.Before(o.ExpireAtTimestamp)
}
