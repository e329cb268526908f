package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"super-odds-alerts/internal/affiliate"
	"super-odds-alerts/internal/cache"
	"super-odds-alerts/internal/service"
	"super-odds-alerts/internal/storage"
)

// OddsService is the slice of the collector the HTTP layer consumes.
type OddsService interface {
	CollectLocked(ctx context.Context) (int, error)
	ListSuperOdds(ctx context.Context, filters service.ListFilters) ([]storage.SuperOdd, error)
	Providers() []affiliate.Provider
}

// API exposes the REST endpoints over the reconciled store.
type API struct {
	svc    OddsService
	cache  *cache.Cache
	logger zerolog.Logger
}

// New builds the API. cache may be nil to serve straight from the store.
func New(svc OddsService, c *cache.Cache, logger zerolog.Logger) *API {
	return &API{svc: svc, cache: c, logger: logger.With().Str("component", "httpapi").Logger()}
}

// Router returns the HTTP routes.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", a.health)
	r.Route("/api/super-odds", func(r chi.Router) {
		r.Get("/", a.listSuperOdds)
		r.Get("/providers", a.listProviders)
		r.Get("/collect", a.collect)
		r.Post("/collect", a.collect)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// collect triggers one reconciliation pass and reports how many records
// reached a terminal create/update outcome. Zero is a valid answer.
func (a *API) collect(w http.ResponseWriter, r *http.Request) {
	processed, err := a.svc.CollectLocked(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("collection trigger failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"processed": processed})
}

type superOddResponse struct {
	ID                string  `json:"id"`
	Provider          string  `json:"provider"`
	ProviderID        string  `json:"providerId"`
	Link              string  `json:"link"`
	SportID           string  `json:"sportId"`
	BoostedOdd        string  `json:"boostedOdd"`
	OriginalOdd       *string `json:"originalOdd,omitempty"`
	DescriptionForSEO *string `json:"descriptionForSeo,omitempty"`
	MarketName        string  `json:"marketName"`
	SelectionName     string  `json:"selectionName"`
	CompetitionName   string  `json:"competitionName"`
	GameName          string  `json:"gameName"`
	GameTimestamp     string  `json:"gameTimestamp"`
	ExpireAtTimestamp string  `json:"expireAtTimestamp"`
	Active            bool    `json:"active"`
}

type listResponse struct {
	Count int                `json:"count"`
	Data  []superOddResponse `json:"data"`
}

func toResponse(odd storage.SuperOdd, now time.Time) superOddResponse {
	resp := superOddResponse{
		ID:                odd.ID,
		Provider:          odd.Provider,
		ProviderID:        odd.ProviderID,
		Link:              odd.Link,
		SportID:           odd.SportID,
		BoostedOdd:        odd.BoostedOdd.String(),
		DescriptionForSEO: odd.DescriptionForSEO,
		MarketName:        odd.MarketName,
		SelectionName:     odd.SelectionName,
		CompetitionName:   odd.CompetitionName,
		GameName:          odd.GameName,
		GameTimestamp:     odd.GameTimestamp.UTC().Format(time.RFC3339),
		ExpireAtTimestamp: odd.ExpireAtTimestamp.UTC().Format(time.RFC3339),
		Active:            odd.IsActive(now),
	}
	if odd.OriginalOdd != nil {
		original := odd.OriginalOdd.String()
		resp.OriginalOdd = &original
	}
	return resp
}

// listSuperOdds serves the filtered listing. An empty result is a valid
// 200 with count 0, never an error.
func (a *API) listSuperOdds(w http.ResponseWriter, r *http.Request) {
	filters, err := decodeListFilters(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	cacheKey := listCacheKey(r.URL.Query())
	if a.cache != nil {
		var cached listResponse
		if ok, _ := a.cache.Get(r.Context(), cacheKey, &cached); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	odds, err := a.svc.ListSuperOdds(r.Context(), filters)
	if err != nil {
		a.logger.Error().Err(err).Msg("listing failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	resp := listResponse{Count: len(odds), Data: make([]superOddResponse, 0, len(odds))}
	for _, odd := range odds {
		resp.Data = append(resp.Data, toResponse(odd, now))
	}

	if a.cache != nil {
		_ = a.cache.Set(r.Context(), cacheKey, resp)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) listProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": a.svc.Providers()})
}

func decodeListFilters(params url.Values) (service.ListFilters, error) {
	filters := service.ListFilters{
		Provider: params.Get("provider"),
		SortBy:   params.Get("sort_by"),
	}

	if raw := params.Get("max_odd"); raw != "" {
		maxOdd, err := decimal.NewFromString(raw)
		if err != nil {
			return service.ListFilters{}, err
		}
		filters.MaxOdd = &maxOdd
	}

	if raw := params.Get("hide_expired"); raw != "" {
		filters.HideExpired = strings.EqualFold(raw, "true")
	}

	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return service.ListFilters{}, fmt.Errorf("invalid limit %q", raw)
		}
		filters.Limit = limit
	}

	return filters, nil
}

func listCacheKey(params url.Values) string {
	return "superodds:list:" + params.Encode()
}
