package filter

import (
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
)

// Query parameter names used on /shop.
const (
	ParamSearch    = "search"
	ParamCategory  = "category"
	ParamMinPrice  = "minPrice"
	ParamMaxPrice  = "maxPrice"
	ParamSortBy    = "sortBy"
	ParamSortOrder = "sortOrder"
)

// PatchFromValues builds a Patch from query or form values. Unparseable numbers are skipped so a
// bad price field leaves the current bound untouched.
func PatchFromValues(values url.Values) Patch {
	var patch Patch
	if _, ok := values[ParamCategory]; ok {
		v := values.Get(ParamCategory)
		patch.Category = &v
	}
	if _, ok := values[ParamSearch]; ok {
		v := values.Get(ParamSearch)
		patch.Search = &v
	}
	if v, ok := parseFloat(values, ParamMinPrice); ok {
		patch.PriceMin = &v
	}
	if v, ok := parseFloat(values, ParamMaxPrice); ok {
		patch.PriceMax = &v
	}
	if raw := strings.TrimSpace(values.Get(ParamSortBy)); raw != "" {
		v := domain.SortField(strings.ToLower(raw))
		patch.SortBy = &v
	}
	if raw := strings.TrimSpace(values.Get(ParamSortOrder)); raw != "" {
		v := domain.SortOrder(strings.ToLower(raw))
		patch.SortOrder = &v
	}
	return patch
}

// DecodeQuery reads the initial FilterState from a page's query string. When both price bounds are
// present they are applied as a whole range.
func DecodeQuery(values url.Values, upperBound float64) domain.FilterState {
	patch := PatchFromValues(values)
	if patch.PriceMin != nil && patch.PriceMax != nil {
		patch.PriceRange = &[2]float64{*patch.PriceMin, *patch.PriceMax}
	}
	return ApplyPartialUpdate(Defaults(upperBound), patch, upperBound)
}

// EncodeQuery serialises state, omitting every value that equals its default.
func EncodeQuery(state domain.FilterState, upperBound float64) url.Values {
	defaults := Defaults(upperBound)
	values := url.Values{}
	if state.SearchQuery != "" {
		values.Set(ParamSearch, state.SearchQuery)
	}
	if id := state.Category(); id != "" {
		values.Set(ParamCategory, id)
	}
	if state.PriceRange[0] != defaults.PriceRange[0] {
		values.Set(ParamMinPrice, formatFloat(state.PriceRange[0]))
	}
	if state.PriceRange[1] != defaults.PriceRange[1] {
		values.Set(ParamMaxPrice, formatFloat(state.PriceRange[1]))
	}
	if state.SortBy != "" && state.SortBy != defaults.SortBy {
		values.Set(ParamSortBy, string(state.SortBy))
	}
	if state.SortOrder != "" && state.SortOrder != defaults.SortOrder {
		values.Set(ParamSortOrder, string(state.SortOrder))
	}
	return values
}

// CanonicalURL joins path with the minimal encoding of state.
func CanonicalURL(path string, state domain.FilterState, upperBound float64) string {
	encoded := EncodeQuery(state, upperBound).Encode()
	if encoded == "" {
		return path
	}
	return path + "?" + encoded
}

// URLSync decides when the address bar needs rewriting. It remembers the last committed URL so an
// unchanged filter state never produces a redundant replace.
type URLSync struct {
	upperBound float64

	mu   sync.Mutex
	last string
}

// NewURLSync builds a URLSync for listings bounded by upperBound.
func NewURLSync(upperBound float64) *URLSync {
	return &URLSync{upperBound: upperBound}
}

// Observe records the URL the visitor currently sees, normalised to its canonical form. It is
// called once per navigation before any Commit.
func (s *URLSync) Observe(current string) {
	canonical := ""
	if parsed, err := url.Parse(strings.TrimSpace(current)); err == nil && parsed.Path != "" {
		canonical = CanonicalURL(parsed.Path, DecodeQuery(parsed.Query(), s.upperBound), s.upperBound)
	}
	s.mu.Lock()
	s.last = canonical
	s.mu.Unlock()
}

// Commit returns the URL for state and true when it differs from the last observed or committed URL.
// Callers write it with a history-replacing update.
func (s *URLSync) Commit(path string, state domain.FilterState) (string, bool) {
	next := CanonicalURL(path, state, s.upperBound)
	s.mu.Lock()
	defer s.mu.Unlock()
	if next == s.last {
		return next, false
	}
	s.last = next
	return next, true
}

func parseFloat(values url.Values, key string) (float64, bool) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v, true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
