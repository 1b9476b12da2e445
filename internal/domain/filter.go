package domain

// SortField selects the comparator used for listings.
type SortField string

const (
	SortByName   SortField = "name"
	SortByPrice  SortField = "price"
	SortByRecent SortField = "recent"
)

// Valid reports whether the field is a known sort key.
func (s SortField) Valid() bool {
	switch s {
	case SortByName, SortByPrice, SortByRecent:
		return true
	}
	return false
}

// SortOrder selects ascending or descending ordering.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Valid reports whether the order is a known direction.
func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}

// FilterState is the combined category, search, price and sort selection of a listing.
type FilterState struct {
	CategoryID  *string    `json:"categoryId"`
	SearchQuery string     `json:"searchQuery"`
	PriceRange  [2]float64 `json:"priceRange"`
	SortBy      SortField  `json:"sortBy"`
	SortOrder   SortOrder  `json:"sortOrder"`
}

// Category returns the selected category id or "" when none is selected.
func (s FilterState) Category() string {
	if s.CategoryID == nil {
		return ""
	}
	return *s.CategoryID
}
