package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/rifqisaleh/shopsmart-rifqi/internal/platform/firestore"
)

// ClientProvider hands out a Firestore client.
type ClientProvider interface {
	Client(ctx context.Context) (*firestore.Client, error)
}

// FirestoreStore keeps each key in its own document of a single collection.
type FirestoreStore struct {
	provider   ClientProvider
	collection string
	clock      func() time.Time
}

type stateDocument struct {
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// NewFirestoreStore builds a store over collection.
func NewFirestoreStore(provider ClientProvider, collection string) (*FirestoreStore, error) {
	if provider == nil {
		return nil, errors.New("storage: firestore provider is required")
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return nil, errors.New("storage: firestore collection is required")
	}
	return &FirestoreStore{provider: provider, collection: collection, clock: time.Now}, nil
}

// Get implements Store.
func (s *FirestoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := s.doc(ctx, key)
	if err != nil {
		return nil, err
	}
	snap, err := doc.Get(ctx)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, pfirestore.WrapError(s.collection+".get", err)
	}
	var state stateDocument
	if err := snap.DataTo(&state); err != nil {
		return nil, pfirestore.WrapError(s.collection+".decode", err)
	}
	return []byte(state.Value), nil
}

// Set implements Store.
func (s *FirestoreStore) Set(ctx context.Context, key string, value []byte) error {
	doc, err := s.doc(ctx, key)
	if err != nil {
		return err
	}
	_, err = doc.Set(ctx, stateDocument{Value: string(value), UpdatedAt: s.clock().UTC()})
	return pfirestore.WrapError(s.collection+".set", err)
}

// Delete implements Store.
func (s *FirestoreStore) Delete(ctx context.Context, key string) error {
	doc, err := s.doc(ctx, key)
	if err != nil {
		return err
	}
	_, err = doc.Delete(ctx)
	return pfirestore.WrapError(s.collection+".delete", err)
}

func (s *FirestoreStore) doc(ctx context.Context, key string) (*firestore.DocumentRef, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(s.collection).Doc(documentID(key)), nil
}

// documentID escapes key so namespace separators do not create subcollections.
func documentID(key string) string {
	return url.PathEscape(key)
}
