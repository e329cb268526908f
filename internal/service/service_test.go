package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"super-odds-alerts/internal/affiliate"
	"super-odds-alerts/internal/feed"
	"super-odds-alerts/internal/storage"
)

type fakeFeed struct {
	snapshot []feed.RawSuperOdd
	err      error
}

func (f *fakeFeed) FetchSnapshot(ctx context.Context) ([]feed.RawSuperOdd, error) {
	return f.snapshot, f.err
}

type fakeStore struct {
	records   map[string]storage.SuperOdd
	failKeys  map[string]bool
	lastQuery storage.SuperOddQuery
	active    []storage.SuperOdd
	creates   int
	updates   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]storage.SuperOdd), failKeys: make(map[string]bool)}
}

func (s *fakeStore) FindOrCreateSuperOdd(ctx context.Context, odd storage.SuperOdd) (bool, error) {
	if s.failKeys[odd.ID] {
		return false, errors.New("simulated store failure")
	}
	if _, ok := s.records[odd.ID]; ok {
		return false, nil
	}
	s.records[odd.ID] = odd
	s.creates++
	return true, nil
}

func (s *fakeStore) UpdateSuperOdd(ctx context.Context, odd storage.SuperOdd) error {
	if s.failKeys[odd.ID] {
		return errors.New("simulated store failure")
	}
	s.records[odd.ID] = odd
	s.updates++
	return nil
}

func (s *fakeStore) ListSuperOdds(ctx context.Context, query storage.SuperOddQuery) ([]storage.SuperOdd, error) {
	s.lastQuery = query
	return []storage.SuperOdd{}, nil
}

func (s *fakeStore) ListActiveSuperOdds(ctx context.Context, now time.Time, limit int) ([]storage.SuperOdd, error) {
	return s.active, nil
}

func (s *fakeStore) CountSuperOdds(ctx context.Context) (int64, error) {
	return int64(len(s.records)), nil
}

type fakeNotifier struct {
	oddAlerts   []string
	digestCalls int
	err         error
}

func (n *fakeNotifier) NotifySuperOdd(ctx context.Context, odd storage.SuperOdd) error {
	if n.err != nil {
		return n.err
	}
	n.oddAlerts = append(n.oddAlerts, odd.ID)
	return nil
}

func (n *fakeNotifier) NotifyDigest(ctx context.Context, odds []storage.SuperOdd, now time.Time) error {
	if n.err != nil {
		return n.err
	}
	n.digestCalls++
	return nil
}

func testRegistry() affiliate.Registry {
	return affiliate.NewStatic(map[string]affiliate.Provider{
		"superbet": {Name: "Superbet", Link: "https://affiliate.example/sb"},
		"kto":      {Name: "KTO", Link: "https://affiliate.example/kto"},
	})
}

func rawOdd(key, providerID, boosted string, expiresIn time.Duration) feed.RawSuperOdd {
	now := time.Now()
	return feed.RawSuperOdd{
		UniqueKey:         key,
		Provider:          "Feed Display Name",
		ProviderID:        providerID,
		Link:              "https://raw.example/should-be-ignored",
		SportID:           "soccer",
		BoostedOdd:        decimal.RequireFromString(boosted),
		OriginalOdd:       decimal.RequireFromString("1.50"),
		MarketName:        "Match Winner",
		SelectionName:     "Home",
		GameName:          "Alpha vs Beta",
		GameTimestamp:     now.Add(3 * time.Hour).Unix(),
		ExpireAtTimestamp: now.Add(expiresIn).Unix(),
	}
}

func newTestService(f feed.SnapshotFetcher, store storage.SuperOddStore, notifier *fakeNotifier) *Service {
	if notifier == nil {
		return New(nil, f, store, testRegistry(), nil, zerolog.Nop())
	}
	return New(nil, f, store, testRegistry(), notifier, zerolog.Nop())
}

func TestCollectCreatesAndNotifies(t *testing.T) {
	snapshot := []feed.RawSuperOdd{
		rawOdd("sb-1", "superbet", "2.50", time.Hour),
		rawOdd("xx-1", "unaffiliated_house", "9.99", time.Hour),
	}
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := newTestService(&fakeFeed{snapshot: snapshot}, store, notifier)

	processed, err := svc.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if processed != 1 {
		t.Fatalf("filtered records must not count, expected 1, got %d", processed)
	}

	if _, ok := store.records["xx-1"]; ok {
		t.Fatal("unaffiliated record must never be persisted")
	}

	stored, ok := store.records["sb-1"]
	if !ok {
		t.Fatal("affiliated record must be persisted")
	}
	if stored.Link != "https://affiliate.example/sb" {
		t.Fatalf("stored link must come from the registry, got %s", stored.Link)
	}
	if stored.Provider != "Superbet" {
		t.Fatalf("stored provider must be the registry display name, got %s", stored.Provider)
	}

	if len(notifier.oddAlerts) != 1 || notifier.oddAlerts[0] != "sb-1" {
		t.Fatalf("expected exactly one alert for sb-1, got %v", notifier.oddAlerts)
	}
}

func TestCollectIdempotentReobservation(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}

	first := &fakeFeed{snapshot: []feed.RawSuperOdd{rawOdd("sb-1", "superbet", "2.50", time.Hour)}}
	svc := newTestService(first, store, notifier)

	for i := 0; i < 3; i++ {
		if _, err := svc.Collect(context.Background()); err != nil {
			t.Fatalf("pass %d failed: %v", i, err)
		}
	}

	if store.creates != 1 {
		t.Fatalf("expected a single create, got %d", store.creates)
	}
	if store.updates != 2 {
		t.Fatalf("re-observations must update, got %d updates", store.updates)
	}
	if len(notifier.oddAlerts) != 1 {
		t.Fatalf("repeated observation must notify exactly once, got %d", len(notifier.oddAlerts))
	}

	// a later pass carries a new price; the stored value must follow it
	first.snapshot = []feed.RawSuperOdd{rawOdd("sb-1", "superbet", "3.10", time.Hour)}
	if _, err := svc.Collect(context.Background()); err != nil {
		t.Fatalf("price-change pass failed: %v", err)
	}
	if got := store.records["sb-1"].BoostedOdd; !got.Equal(decimal.RequireFromString("3.10")) {
		t.Fatalf("stored price must reflect the latest pass, got %s", got)
	}
	if len(notifier.oddAlerts) != 1 {
		t.Fatal("updates must never re-notify")
	}
}

func TestCollectExpiredCreationNotNotified(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := newTestService(&fakeFeed{snapshot: []feed.RawSuperOdd{
		rawOdd("sb-old", "superbet", "2.00", -time.Hour),
	}}, store, notifier)

	processed, err := svc.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expired records still persist, expected 1 processed, got %d", processed)
	}
	if _, ok := store.records["sb-old"]; !ok {
		t.Fatal("expired record must still be stored")
	}
	if len(notifier.oddAlerts) != 0 {
		t.Fatalf("expired creation must not notify, got %v", notifier.oddAlerts)
	}
}

func TestCollectPersistenceFailureContained(t *testing.T) {
	store := newFakeStore()
	store.failKeys["sb-2"] = true
	notifier := &fakeNotifier{}
	svc := newTestService(&fakeFeed{snapshot: []feed.RawSuperOdd{
		rawOdd("sb-1", "superbet", "2.00", time.Hour),
		rawOdd("sb-2", "superbet", "2.10", time.Hour),
		rawOdd("sb-3", "kto", "2.20", time.Hour),
	}}, store, notifier)

	processed, err := svc.Collect(context.Background())
	if err != nil {
		t.Fatalf("a single bad record must not abort the pass: %v", err)
	}
	if processed != 2 {
		t.Fatalf("expected 2 processed, got %d", processed)
	}
	if _, ok := store.records["sb-3"]; !ok {
		t.Fatal("records after the failure must still land")
	}
}

func TestCollectFeedErrorAbortsPass(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(&fakeFeed{err: feed.ErrFeedUnavailable}, store, nil)

	processed, err := svc.Collect(context.Background())
	if !errors.Is(err, feed.ErrFeedUnavailable) {
		t.Fatalf("feed error must propagate, got %v", err)
	}
	if processed != 0 {
		t.Fatalf("aborted pass processes nothing, got %d", processed)
	}
	if len(store.records) != 0 {
		t.Fatal("aborted pass must not write")
	}
}

func TestCollectNotificationFailureDoesNotAbort(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{err: errors.New("channel down")}
	svc := newTestService(&fakeFeed{snapshot: []feed.RawSuperOdd{
		rawOdd("sb-1", "superbet", "2.00", time.Hour),
		rawOdd("sb-2", "superbet", "2.10", time.Hour),
	}}, store, notifier)

	processed, err := svc.Collect(context.Background())
	if err != nil {
		t.Fatalf("notification failures are contained: %v", err)
	}
	if processed != 2 {
		t.Fatalf("expected 2 processed, got %d", processed)
	}
}

func TestListSuperOddsAppliesAllowListAndSentinel(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(&fakeFeed{}, store, nil)

	if _, err := svc.ListSuperOdds(context.Background(), ListFilters{Provider: "Todas"}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if store.lastQuery.Provider != "" {
		t.Fatalf("sentinel provider must not filter, got %q", store.lastQuery.Provider)
	}
	if len(store.lastQuery.AllowedProviderIDs) != 2 {
		t.Fatalf("allow-list must always be applied, got %v", store.lastQuery.AllowedProviderIDs)
	}

	if _, err := svc.ListSuperOdds(context.Background(), ListFilters{Provider: "Superbet", SortBy: "boosted_desc"}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if store.lastQuery.Provider != "Superbet" {
		t.Fatalf("explicit provider must filter, got %q", store.lastQuery.Provider)
	}
	if store.lastQuery.SortBy != storage.SortBoostedDesc {
		t.Fatalf("sort order not forwarded, got %q", store.lastQuery.SortBy)
	}
}

func TestListSuperOddsEmptyRegistry(t *testing.T) {
	store := newFakeStore()
	empty := affiliate.NewStatic(nil)
	svc := New(nil, &fakeFeed{}, store, empty, nil, zerolog.Nop())

	odds, err := svc.ListSuperOdds(context.Background(), ListFilters{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(odds) != 0 {
		t.Fatalf("no affiliates means no results, got %d", len(odds))
	}
}

func TestSendDigest(t *testing.T) {
	store := newFakeStore()
	store.active = []storage.SuperOdd{{ID: "sb-1", Provider: "Superbet", BoostedOdd: decimal.RequireFromString("2.5")}}
	notifier := &fakeNotifier{}
	svc := newTestService(&fakeFeed{}, store, notifier)

	if err := svc.SendDigest(context.Background()); err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	if notifier.digestCalls != 1 {
		t.Fatalf("expected one digest call, got %d", notifier.digestCalls)
	}
}

func TestSendDigestWithoutNotifier(t *testing.T) {
	svc := newTestService(&fakeFeed{}, newFakeStore(), nil)
	if err := svc.SendDigest(context.Background()); err == nil {
		t.Fatal("digest without a notifier must error")
	}
}
