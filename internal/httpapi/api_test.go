package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"super-odds-alerts/internal/affiliate"
	"super-odds-alerts/internal/service"
	"super-odds-alerts/internal/storage"
)

type fakeOddsService struct {
	odds        []storage.SuperOdd
	listErr     error
	lastFilters service.ListFilters
	processed   int
	collectErr  error
	providers   []affiliate.Provider
}

func (f *fakeOddsService) CollectLocked(ctx context.Context) (int, error) {
	return f.processed, f.collectErr
}

func (f *fakeOddsService) ListSuperOdds(ctx context.Context, filters service.ListFilters) ([]storage.SuperOdd, error) {
	f.lastFilters = filters
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.odds, nil
}

func (f *fakeOddsService) Providers() []affiliate.Provider {
	return f.providers
}

func newTestAPI(svc *fakeOddsService) http.Handler {
	return New(svc, nil, zerolog.Nop()).Router()
}

func sampleStoredOdd() storage.SuperOdd {
	original := decimal.RequireFromString("1.80")
	return storage.SuperOdd{
		ID:                "sb-1",
		Provider:          "Superbet",
		ProviderID:        "superbet",
		Link:              "https://affiliate.example/sb",
		SportID:           "soccer",
		BoostedOdd:        decimal.RequireFromString("2.35"),
		OriginalOdd:       &original,
		MarketName:        "Match Winner",
		SelectionName:     "Home",
		CompetitionName:   "Serie A",
		GameName:          "Alpha x Beta",
		GameTimestamp:     time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
		ExpireAtTimestamp: time.Now().UTC().Add(time.Hour),
	}
}

func TestListSuperOdds(t *testing.T) {
	svc := &fakeOddsService{odds: []storage.SuperOdd{sampleStoredOdd()}}
	handler := newTestAPI(svc)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/super-odds/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.Count != 1 || len(resp.Data) != 1 {
		t.Fatalf("unexpected payload: %+v", resp)
	}

	got := resp.Data[0]
	if got.ID != "sb-1" || got.BoostedOdd != "2.35" {
		t.Fatalf("record mangled: %+v", got)
	}
	if got.OriginalOdd == nil || *got.OriginalOdd != "1.8" {
		t.Fatalf("original odd mangled: %+v", got.OriginalOdd)
	}
	if got.GameTimestamp != "2025-06-01T18:00:00Z" {
		t.Fatalf("timestamps must be RFC3339 UTC, got %s", got.GameTimestamp)
	}
	if !got.Active {
		t.Fatal("a future expiry must report active")
	}
}

func TestListSuperOddsForwardsFilters(t *testing.T) {
	svc := &fakeOddsService{}
	handler := newTestAPI(svc)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/super-odds/?provider=Superbet&max_odd=3.5&sort_by=boosted_desc&hide_expired=true&limit=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	f := svc.lastFilters
	if f.Provider != "Superbet" || f.SortBy != "boosted_desc" || !f.HideExpired || f.Limit != 10 {
		t.Fatalf("filters not forwarded: %+v", f)
	}
	if f.MaxOdd == nil || !f.MaxOdd.Equal(decimal.RequireFromString("3.5")) {
		t.Fatalf("max odd not forwarded: %v", f.MaxOdd)
	}
}

func TestListSuperOddsEmpty(t *testing.T) {
	handler := newTestAPI(&fakeOddsService{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/super-odds/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("empty result is not an error, status = %d", rec.Code)
	}

	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.Count != 0 || resp.Data == nil {
		t.Fatalf("expected count 0 with an empty array, got %s", rec.Body)
	}
}

func TestListSuperOddsBadParams(t *testing.T) {
	handler := newTestAPI(&fakeOddsService{})

	for _, target := range []string{
		"/api/super-odds/?max_odd=abc",
		"/api/super-odds/?limit=many",
		"/api/super-odds/?limit=-1",
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestListSuperOddsStoreError(t *testing.T) {
	handler := newTestAPI(&fakeOddsService{listErr: errors.New("store down")})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/super-odds/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestCollectTrigger(t *testing.T) {
	svc := &fakeOddsService{processed: 7}
	handler := newTestAPI(svc)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/super-odds/collect", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp["processed"] != 7 {
		t.Fatalf("processed = %d", resp["processed"])
	}
}

func TestCollectTriggerFailure(t *testing.T) {
	handler := newTestAPI(&fakeOddsService{collectErr: errors.New("feed unavailable")})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/super-odds/collect", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestListProviders(t *testing.T) {
	svc := &fakeOddsService{providers: []affiliate.Provider{
		{ID: "kto", Name: "KTO", Link: "https://affiliate.example/kto"},
	}}
	handler := newTestAPI(svc)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/super-odds/providers", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Data []map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0]["id"] != "kto" {
		t.Fatalf("unexpected providers: %s", rec.Body)
	}
	if _, leaked := resp.Data[0]["Link"]; leaked {
		t.Fatal("affiliate link must not be exposed")
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestAPI(&fakeOddsService{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
