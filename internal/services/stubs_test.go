package services

import (
	"context"
	"errors"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/apiclient"
	"github.com/rifqisaleh/shopsmart-rifqi/internal/domain"
)

type stubAccountAPI struct {
	registerFn func(ctx context.Context, req apiclient.RegisterRequest) (domain.UserProfile, error)
	rolesFn    func(ctx context.Context) ([]string, error)
}

func (s *stubAccountAPI) Register(ctx context.Context, req apiclient.RegisterRequest) (domain.UserProfile, error) {
	if s.registerFn == nil {
		return domain.UserProfile{}, errors.New("register not stubbed")
	}
	return s.registerFn(ctx, req)
}

func (s *stubAccountAPI) Roles(ctx context.Context) ([]string, error) {
	if s.rolesFn == nil {
		return nil, errors.New("roles not stubbed")
	}
	return s.rolesFn(ctx)
}

type stubSession struct {
	authenticated bool
	fetchFn       func(ctx context.Context, method, path string, body, out any) error
	loggedOut     bool
}

func (s *stubSession) IsAuthenticated(context.Context) bool { return s.authenticated }

func (s *stubSession) FetchWithAuth(ctx context.Context, method, path string, body, out any) error {
	if s.fetchFn == nil {
		return errors.New("fetch not stubbed")
	}
	return s.fetchFn(ctx, method, path, body, out)
}

func (s *stubSession) Logout(context.Context) error {
	s.loggedOut = true
	s.authenticated = false
	return nil
}

type stubCatalog struct {
	productFn  func(ctx context.Context, id int) (domain.Product, error)
	productsFn func(ctx context.Context, categoryID string) ([]domain.Product, error)
}

func (s *stubCatalog) Product(ctx context.Context, id int) (domain.Product, error) {
	return s.productFn(ctx, id)
}

func (s *stubCatalog) Products(ctx context.Context, categoryID string) ([]domain.Product, error) {
	return s.productsFn(ctx, categoryID)
}

type stubPublisher struct {
	events []OrderPlacedEvent
	err    error
}

func (s *stubPublisher) PublishOrderPlaced(_ context.Context, event OrderPlacedEvent) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.events = append(s.events, event)
	return "msg-1", nil
}
