package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/apiclient"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/cart"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product      = domain.Product
	CartItem     = domain.CartItem
	UserProfile  = domain.UserProfile
	CartSnapshot = cart.Snapshot
)

// AuthSession is the visitor's token session.
type AuthSession interface {
	IsAuthenticated(ctx context.Context) bool
	FetchWithAuth(ctx context.Context, method, path string, body, out any) error
	Logout(ctx context.Context) error
}

// AccountAPI is the upstream account surface.
type AccountAPI interface {
	Register(ctx context.Context, req apiclient.RegisterRequest) (domain.UserProfile, error)
	Roles(ctx context.Context) ([]string, error)
}

// ProductCatalog is the upstream product surface.
type ProductCatalog interface {
	Product(ctx context.Context, id int) (domain.Product, error)
	Products(ctx context.Context, categoryID string) ([]domain.Product, error)
}

// ImageResolver normalises untrusted product image fields.
type ImageResolver interface {
	Resolve(field domain.ImageField) []string
	First(field domain.ImageField) string
}

// CartSource is the visitor's cart as seen by checkout.
type CartSource interface {
	Snapshot() cart.Snapshot
	Deduct(ordered []domain.CartItem)
}

// OrderEventPublisher delivers order.placed events.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlacedEvent) (string, error)
}

// AccountService registers visitors and manages the signed-in account.
type AccountService interface {
	Register(ctx context.Context, cmd RegisterCommand) (UserProfile, error)
	Roles(ctx context.Context) RoleOptions
	Profile(ctx context.Context, session AuthSession) (UserProfile, error)
	DeleteAccount(ctx context.Context, session AuthSession) error
}

// ProductService builds the product detail page.
type ProductService interface {
	Detail(ctx context.Context, id int) (ProductDetail, error)
}

// CheckoutService places orders from the visitor's cart.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (OrderConfirmation, error)
}

// RegisterCommand is the registration form.
type RegisterCommand struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Role            string
	DateOfBirth     string
}

// RoleOptions lists the selectable roles. Notice is set when defaults were substituted.
type RoleOptions struct {
	Roles  []string `json:"roles"`
	Notice string   `json:"notice,omitempty"`
}

// ProductDetail is the product page view model.
type ProductDetail struct {
	Product Product          `json:"product"`
	Images  []string         `json:"images"`
	Related []RelatedProduct `json:"related"`
	Rating  Rating           `json:"rating"`
}

// RelatedProduct is a tile in the related products strip.
type RelatedProduct struct {
	ID    int             `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// Rating summarises the review table for a product.
type Rating struct {
	Average float64 `json:"average"`
	Stars   int     `json:"stars"`
	Count   int     `json:"count"`
}

// PlaceOrderCommand is the checkout form plus the visitor context.
type PlaceOrderCommand struct {
	VisitorID string
	Session   AuthSession
	Cart      CartSource
	Name      string
	Email     string
	Address   string
}

// OrderConfirmation is returned after an order is placed.
type OrderConfirmation struct {
	OrderID        string     `json:"orderId"`
	Items          []CartItem `json:"items"`
	Total          string     `json:"total"`
	TransferMethod string     `json:"transferMethod"`
	MessageID      string     `json:"-"`
	PlacedAt       time.Time  `json:"placedAt"`
}

// OrderPlacedEvent is the payload published for every placed order.
type OrderPlacedEvent struct {
	OrderID        string     `json:"orderId"`
	VisitorID      string     `json:"visitorId,omitempty"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Address        string     `json:"address"`
	TransferMethod string     `json:"transferMethod"`
	Items          []CartItem `json:"items"`
	Total          string     `json:"total"`
	PlacedAt       time.Time  `json:"placedAt"`
}

// Error carries a visitor-facing message alongside the cause.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Message returns the visitor-facing message of err or fallback.
func Message(err error, fallback string) string {
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return svcErr.Message
	}
	return fallback
}

// FieldErrors maps form field names to validation messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for key := range f {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+f[key])
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}
