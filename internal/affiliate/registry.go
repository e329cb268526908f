package affiliate

import "sort"

// Provider is one bookmaker with an affiliate tracking link configured.
type Provider struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Link string `json:"-"`
}

// Registry resolves feed provider identifiers to affiliate metadata.
// A provider that does not resolve is excluded from storage entirely,
// so the registry doubles as the ingestion allow-list.
type Registry interface {
	Resolve(providerID string) (Provider, bool)
	List() []Provider
}

// Static is an immutable Registry backed by a map. It is rebuilt from
// configuration on deploy rather than compiled in, so the affiliate
// deals can change without a code change.
type Static struct {
	byID    map[string]Provider
	ordered []Provider
}

// NewStatic builds a registry from a provider map keyed by feed id.
func NewStatic(providers map[string]Provider) *Static {
	byID := make(map[string]Provider, len(providers))
	ordered := make([]Provider, 0, len(providers))
	for id, p := range providers {
		p.ID = id
		byID[id] = p
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	return &Static{byID: byID, ordered: ordered}
}

// Resolve looks up a feed provider id.
func (s *Static) Resolve(providerID string) (Provider, bool) {
	p, ok := s.byID[providerID]
	return p, ok
}

// List returns all configured providers sorted by id.
func (s *Static) List() []Provider {
	out := make([]Provider, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// IDs returns the allow-listed provider ids sorted.
func (s *Static) IDs() []string {
	ids := make([]string, 0, len(s.ordered))
	for _, p := range s.ordered {
		ids = append(ids, p.ID)
	}
	return ids
}

// Defaults returns the compiled-in affiliate map, used when the
// configuration does not override it.
func Defaults() map[string]Provider {
	return map[string]Provider{
		"superbet": {Name: "Superbet", Link: "https://afiliapub.scaletrk.com/click?o=11&a=550218488"},
		"mc_games": {Name: "McGames", Link: "https://go.aff.mcgames.bet/fedczzag"},
		"kto":      {Name: "KTO", Link: "https://afiliapub.scaletrk.com/click?o=28&a=550218488"},
	}
}

var _ Registry = (*Static)(nil)
