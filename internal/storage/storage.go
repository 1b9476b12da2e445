// Package storage holds durable per-visitor key/value state such as auth tokens and the wishlist.
package storage

import (
	"context"
	"errors"
	"strings"
)

// Well-known keys.
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyWishlist     = "wishlist"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// Store persists opaque values by key. Writes are last-writer-wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Namespaced prefixes every key with namespace so visitors never see each other's state.
func Namespaced(store Store, namespace string) Store {
	return namespaced{store: store, prefix: strings.Trim(namespace, "/") + "/"}
}

type namespaced struct {
	store  Store
	prefix string
}

func (n namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.store.Get(ctx, n.prefix+key)
}

func (n namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.store.Set(ctx, n.prefix+key, value)
}

func (n namespaced) Delete(ctx context.Context, key string) error {
	return n.store.Delete(ctx, n.prefix+key)
}
