package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestClient(baseURL string) *Client {
	return NewClient(Options{BaseURL: baseURL, Timeout: time.Second, UserAgent: "test"}, noopLogger())
}

func TestFetchSnapshotSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/super_odds" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		// boosted as string, original as number: both shapes occur upstream
		_, _ = w.Write([]byte(`{
			"status_code": 200,
			"data": [{
				"unique_key": "sb-123",
				"provider": "Superbet",
				"provider_id": "superbet",
				"link": "https://raw.example/offer",
				"sport_id": "soccer",
				"boosted_odd": "2.50",
				"original_odd": 1.8,
				"market_name": "Correct Score",
				"selection_name": "2:0",
				"competition_name": "Serie A",
				"game_name": "Alpha vs Beta",
				"game_timestamp": 1700000000,
				"expire_at_timestamp": 1700003600
			}]
		}`))
	}))
	defer srv.Close()

	snapshot, err := newTestClient(srv.URL).FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(snapshot) != 1 {
		t.Fatalf("expected 1 record, got %d", len(snapshot))
	}

	raw := snapshot[0]
	if raw.UniqueKey != "sb-123" || raw.ProviderID != "superbet" {
		t.Fatalf("unexpected record: %#v", raw)
	}
	if !raw.BoostedOdd.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("boosted odd parsed wrong: %s", raw.BoostedOdd)
	}
	if !raw.OriginalOdd.Equal(decimal.RequireFromString("1.8")) {
		t.Fatalf("original odd parsed wrong: %s", raw.OriginalOdd)
	}
	if raw.ExpireAtTimestamp != 1700003600 {
		t.Fatalf("expire epoch parsed wrong: %d", raw.ExpireAtTimestamp)
	}
}

func TestFetchSnapshotHTTPErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchSnapshot(context.Background())
	if !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
}

func TestFetchSnapshotConnectionRefusedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL).FetchSnapshot(context.Background())
	if !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
}

func TestFetchSnapshotBadJSONIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status_code": 200, "data": `))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchSnapshot(context.Background())
	if !errors.Is(err, ErrFeedMalformed) {
		t.Fatalf("expected ErrFeedMalformed, got %v", err)
	}
}

func TestFetchSnapshotEnvelopeErrorIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status_code": 500, "message": "upstream broken"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchSnapshot(context.Background())
	if !errors.Is(err, ErrFeedMalformed) {
		t.Fatalf("expected ErrFeedMalformed, got %v", err)
	}
}

func TestFetchSnapshotEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status_code": 200, "data": []}`))
	}))
	defer srv.Close()

	snapshot, err := newTestClient(srv.URL).FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("empty feed is valid: %v", err)
	}
	if len(snapshot) != 0 {
		t.Fatalf("expected empty snapshot, got %d records", len(snapshot))
	}
}
