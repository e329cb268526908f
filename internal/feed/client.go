package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const superOddsPath = "/api/super_odds"

var (
	// ErrFeedUnavailable covers network-level failures talking to the feed.
	ErrFeedUnavailable = errors.New("feed unavailable")
	// ErrFeedMalformed covers undecodable or rejected payloads.
	ErrFeedMalformed = errors.New("feed payload malformed")
)

// RawSuperOdd is one boosted-odds record as delivered by the feed.
// Odds arrive as JSON numbers or quoted strings; decimal handles both.
type RawSuperOdd struct {
	UniqueKey         string          `json:"unique_key"`
	Provider          string          `json:"provider"`
	ProviderID        string          `json:"provider_id"`
	Link              string          `json:"link"`
	SportID           string          `json:"sport_id"`
	BoostedOdd        decimal.Decimal `json:"boosted_odd"`
	OriginalOdd       decimal.Decimal `json:"original_odd"`
	DescriptionForSEO string          `json:"description_for_seo"`
	MarketName        string          `json:"market_name"`
	SelectionName     string          `json:"selection_name"`
	CompetitionName   string          `json:"competition_name"`
	GameName          string          `json:"game_name"`
	GameTimestamp     int64           `json:"game_timestamp"`
	ExpireAtTimestamp int64           `json:"expire_at_timestamp"`
}

// SnapshotFetcher retrieves one complete snapshot of the promotional feed.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) ([]RawSuperOdd, error)
}

// Options parameterise the feed client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client fetches super odds over HTTP.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a feed client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.craquestats.com.br"
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "feed_client").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type snapshotEnvelope struct {
	StatusCode int           `json:"status_code"`
	Message    string        `json:"message"`
	Data       []RawSuperOdd `json:"data"`
}

// FetchSnapshot retrieves the current super-odds snapshot. The result is
// the complete feed state; partial payloads are not supported upstream.
func (c *Client) FetchSnapshot(ctx context.Context) ([]RawSuperOdd, error) {
	endpoint := c.baseURL + superOddsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %s", ErrFeedUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	var envelope snapshotEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFeedMalformed, err)
	}

	if envelope.StatusCode != http.StatusOK || envelope.Data == nil {
		return nil, fmt.Errorf("%w: envelope status %d", ErrFeedMalformed, envelope.StatusCode)
	}

	c.logger.Debug().Int("records", len(envelope.Data)).Msg("snapshot fetched")
	return envelope.Data, nil
}

var _ SnapshotFetcher = (*Client)(nil)
