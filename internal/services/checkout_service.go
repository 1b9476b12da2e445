package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// TransferMethod is the only supported payment method.
	TransferMethod = "ATM Transaction"

	MsgRequiredFields = "Please fill in all required fields."
	MsgEmptyCart      = "Your cart is empty."
	MsgOrderFailed    = "We could not place your order. Please try again."
)

var (
	// ErrCheckoutInvalidInput indicates a required checkout field is missing.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutUnauthenticated indicates the visitor must sign in first.
	ErrCheckoutUnauthenticated = errors.New("checkout: unauthenticated")
	// ErrCheckoutEmptyCart indicates there is nothing to order.
	ErrCheckoutEmptyCart = errors.New("checkout: cart is empty")
	// ErrCheckoutUnavailable indicates the order event could not be delivered.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Events      OrderEventPublisher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	events OrderEventPublisher
	now    func() time.Time
	newID  func() string
	logger func(ctx context.Context, event string, fields map[string]any)
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Events == nil {
		return nil, errors.New("checkout service: order event publisher is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &checkoutService{
		events: deps.Events,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// PlaceOrder validates the form against an authenticated session and a non-empty cart, publishes
// order.placed and removes the ordered lines from the cart. The cart is left untouched when
// publishing fails.
func (s *checkoutService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (OrderConfirmation, error) {
	if cmd.Session == nil || !cmd.Session.IsAuthenticated(ctx) {
		return OrderConfirmation{}, ErrCheckoutUnauthenticated
	}
	if cmd.Cart == nil {
		return OrderConfirmation{}, &Error{Message: MsgEmptyCart, Err: ErrCheckoutEmptyCart}
	}
	snapshot := cmd.Cart.Snapshot()
	if len(snapshot.Items) == 0 {
		return OrderConfirmation{}, &Error{Message: MsgEmptyCart, Err: ErrCheckoutEmptyCart}
	}

	name := strings.TrimSpace(cmd.Name)
	email := strings.TrimSpace(cmd.Email)
	address := strings.TrimSpace(cmd.Address)
	if name == "" || email == "" || address == "" {
		return OrderConfirmation{}, &Error{Message: MsgRequiredFields, Err: ErrCheckoutInvalidInput}
	}

	event := OrderPlacedEvent{
		OrderID:        s.newID(),
		VisitorID:      strings.TrimSpace(cmd.VisitorID),
		Name:           name,
		Email:          email,
		Address:        address,
		TransferMethod: TransferMethod,
		Items:          snapshot.Items,
		Total:          snapshot.DisplayTotal(),
		PlacedAt:       s.now(),
	}

	messageID, err := s.events.PublishOrderPlaced(ctx, event)
	if err != nil {
		s.logger(ctx, "checkout.publish_failed", map[string]any{"orderId": event.OrderID, "error": err.Error()})
		return OrderConfirmation{}, &Error{Message: MsgOrderFailed, Err: errors.Join(ErrCheckoutUnavailable, err)}
	}
	cmd.Cart.Deduct(event.Items)
	s.logger(ctx, "checkout.order_placed", map[string]any{
		"orderId":   event.OrderID,
		"messageId": messageID,
		"items":     len(event.Items),
		"total":     event.Total,
	})

	return OrderConfirmation{
		OrderID:        event.OrderID,
		Items:          event.Items,
		Total:          event.Total,
		TransferMethod: TransferMethod,
		MessageID:      messageID,
		PlacedAt:       event.PlacedAt,
	}, nil
}
