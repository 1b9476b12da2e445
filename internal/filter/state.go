// Package filter derives the displayed product list from a raw catalogue and the visitor's
// category, search, price and sort selection, and keeps that selection in the page URL.
package filter

import (
	"math"
	"strings"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
)

// DefaultPriceUpperBound is the top of the price slider.
const DefaultPriceUpperBound = 500.0

// Patch is a partial FilterState update. Nil fields are left unchanged. A Category pointing at ""
// clears the category selection. PriceRange replaces both bounds and takes precedence over
// PriceMin/PriceMax.
type Patch struct {
	Category   *string
	Search     *string
	PriceMin   *float64
	PriceMax   *float64
	PriceRange *[2]float64
	SortBy     *domain.SortField
	SortOrder  *domain.SortOrder
}

// Defaults returns the unfiltered state for a catalogue whose prices top out at upperBound.
func Defaults(upperBound float64) domain.FilterState {
	return domain.FilterState{
		PriceRange: [2]float64{0, normalizeUpper(upperBound)},
		SortBy:     domain.SortByName,
		SortOrder:  domain.SortAsc,
	}
}

// ApplyPartialUpdate merges patch into current. Price bounds are clamped to [0, upperBound]; moving
// one bound past the other pins the other bound to it so the range never inverts. Non-finite
// numbers and unknown sort values are ignored.
func ApplyPartialUpdate(current domain.FilterState, patch Patch, upperBound float64) domain.FilterState {
	upper := normalizeUpper(upperBound)
	next := current
	next.PriceRange = [2]float64{clamp(current.PriceRange[0], upper), clamp(current.PriceRange[1], upper)}
	if next.PriceRange[0] > next.PriceRange[1] {
		next.PriceRange[0], next.PriceRange[1] = next.PriceRange[1], next.PriceRange[0]
	}

	if patch.Category != nil {
		if id := strings.TrimSpace(*patch.Category); id == "" {
			next.CategoryID = nil
		} else {
			next.CategoryID = &id
		}
	}
	if patch.Search != nil {
		next.SearchQuery = strings.TrimSpace(*patch.Search)
	}

	switch {
	case patch.PriceRange != nil:
		lo, hi := patch.PriceRange[0], patch.PriceRange[1]
		if finite(lo) && finite(hi) {
			lo, hi = clamp(lo, upper), clamp(hi, upper)
			if lo > hi {
				lo, hi = hi, lo
			}
			next.PriceRange = [2]float64{lo, hi}
		}
	default:
		if patch.PriceMin != nil && finite(*patch.PriceMin) {
			next.PriceRange[0] = clamp(*patch.PriceMin, upper)
			if next.PriceRange[0] > next.PriceRange[1] {
				next.PriceRange[1] = next.PriceRange[0]
			}
		}
		if patch.PriceMax != nil && finite(*patch.PriceMax) {
			next.PriceRange[1] = clamp(*patch.PriceMax, upper)
			if next.PriceRange[1] < next.PriceRange[0] {
				next.PriceRange[0] = next.PriceRange[1]
			}
		}
	}

	if patch.SortBy != nil && patch.SortBy.Valid() {
		next.SortBy = *patch.SortBy
	}
	if patch.SortOrder != nil && patch.SortOrder.Valid() {
		next.SortOrder = *patch.SortOrder
	}
	if !next.SortBy.Valid() {
		next.SortBy = domain.SortByName
	}
	if !next.SortOrder.Valid() {
		next.SortOrder = domain.SortAsc
	}
	return next
}

func normalizeUpper(upper float64) float64 {
	if !finite(upper) || upper <= 0 {
		return DefaultPriceUpperBound
	}
	return upper
}

func clamp(v, upper float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > upper:
		return upper
	default:
		return v
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
