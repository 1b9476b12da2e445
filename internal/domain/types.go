package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalogue entry served by the storefront API. Values are treated as read-only.
type Product struct {
	ID          int
	Title       string
	Price       decimal.Decimal
	Images      ImageField
	Description string
	Category    CategoryRef
	CreatedAt   *time.Time
}

// CategoryRef is the category embedded in a product payload.
type CategoryRef struct {
	ID   FlexibleID `json:"id"`
	Name string     `json:"name"`
}

type productWire struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Images      ImageField      `json:"images"`
	Description string          `json:"description,omitempty"`
	Category    *CategoryRef    `json:"category,omitempty"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
	CreationAt  *time.Time      `json:"creationAt,omitempty"`
}

// UnmarshalJSON accepts both createdAt and creationAt timestamps. A missing category id falls into
// the Misc bucket.
func (p *Product) UnmarshalJSON(data []byte) error {
	var wire productWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	category := CategoryRef{ID: FlexibleID(MiscCategoryID)}
	if wire.Category != nil {
		category = *wire.Category
		if strings.TrimSpace(category.ID.String()) == "" {
			category.ID = FlexibleID(MiscCategoryID)
		}
	}
	createdAt := wire.CreatedAt
	if createdAt == nil {
		createdAt = wire.CreationAt
	}
	*p = Product{
		ID:          wire.ID,
		Title:       wire.Title,
		Price:       wire.Price,
		Images:      wire.Images,
		Description: wire.Description,
		Category:    category,
		CreatedAt:   createdAt,
	}
	return nil
}

// MarshalJSON renders the product using the API field names.
func (p Product) MarshalJSON() ([]byte, error) {
	category := p.Category
	return json.Marshal(productWire{
		ID:          p.ID,
		Title:       p.Title,
		Price:       p.Price,
		Images:      p.Images,
		Description: p.Description,
		Category:    &category,
		CreatedAt:   p.CreatedAt,
	})
}

// MiscCategoryID is the identity of the catch-all category bucket.
const MiscCategoryID = "5"

// Category is a selectable listing category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts numeric or string ids.
func (c *Category) UnmarshalJSON(data []byte) error {
	var wire CategoryRef
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	c.ID = wire.ID.String()
	c.Name = wire.Name
	return nil
}

// CartItem is a cart-resident quantity record for one product.
type CartItem struct {
	ID       int             `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image,omitempty"`
}

// Subtotal returns price multiplied by quantity without rounding.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// WishlistItem is a liked product persisted across sessions.
type WishlistItem struct {
	ID    int             `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// UserProfile is the authenticated account returned by the profile endpoint.
type UserProfile struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}
