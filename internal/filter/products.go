package filter

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
)

// FilterProducts keeps products matching the selected category, the search text and the inclusive
// price range. Input order is preserved.
func FilterProducts(products []domain.Product, state domain.FilterState) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	query := strings.ToLower(strings.TrimSpace(state.SearchQuery))
	lo := decimal.NewFromFloat(state.PriceRange[0])
	hi := decimal.NewFromFloat(state.PriceRange[1])

	for _, product := range products {
		if state.CategoryID != nil && product.Category.ID.String() != *state.CategoryID {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(product.Title), query) {
			continue
		}
		if product.Price.LessThan(lo) || product.Price.GreaterThan(hi) {
			continue
		}
		out = append(out, product)
	}
	return out
}

// SortOptions carries the inputs of a sort that are not part of the filter state.
type SortOptions struct {
	// Locale drives title collation. The zero tag collates as English.
	Locale language.Tag
	// Now stands in for products without a creation time.
	Now time.Time
}

// SortProducts returns a stably sorted copy of products. Descending order inverts the comparator so
// ties keep their input order in both directions.
func SortProducts(products []domain.Product, sortBy domain.SortField, order domain.SortOrder, opts SortOptions) []domain.Product {
	out := slices.Clone(products)
	if out == nil {
		out = []domain.Product{}
	}

	var compare func(a, b domain.Product) int
	switch sortBy {
	case domain.SortByPrice:
		compare = func(a, b domain.Product) int { return a.Price.Cmp(b.Price) }
	case domain.SortByRecent:
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		createdAt := func(p domain.Product) time.Time {
			if p.CreatedAt == nil {
				return now
			}
			return *p.CreatedAt
		}
		compare = func(a, b domain.Product) int { return createdAt(a).Compare(createdAt(b)) }
	default:
		tag := opts.Locale
		if tag == language.Und {
			tag = language.English
		}
		collator := collate.New(tag)
		compare = func(a, b domain.Product) int { return collator.CompareString(a.Title, b.Title) }
	}

	if order == domain.SortDesc {
		asc := compare
		compare = func(a, b domain.Product) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

// Apply filters then sorts products, yielding the displayed list.
func Apply(products []domain.Product, state domain.FilterState, opts SortOptions) []domain.Product {
	return SortProducts(FilterProducts(products, state), state.SortBy, state.SortOrder, opts)
}
