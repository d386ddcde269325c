// Package store provides the persistent order store consumed by the
// order-book cache: per (side, list) collections of order documents keyed by
// order id, plus the bulk sell-order query used by the matching engine.
package store

import (
	"context"
	"errors"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/model"
)

// MaxCollectionsPerQuery caps the address batch size of a single
// ActiveSellOrdersByCollections call. Callers chunk larger inputs.
const MaxCollectionsPerQuery = 10

// Store is the narrow document-store surface the order-book cache depends on.
// Implementations make no transactional promises across calls: a move modeled
// as Upsert-then-Delete can be observed half-applied after a crash.
type Store interface {
	// LoadAll returns every order document in the (side, list) collection.
	LoadAll(ctx context.Context, side model.Side, list model.ListID) ([]*model.Order, error)
	// Upsert writes an order document into the (side, list) collection.
	Upsert(ctx context.Context, side model.Side, list model.ListID, order *model.Order) error
	// Delete removes an order document. Deleting an absent id is not an error.
	Delete(ctx context.Context, side model.Side, list model.ListID, id string) error
	// ActiveSellOrdersByCollections returns the validActive sell orders that
	// reference any of the given collection addresses. Inputs longer than
	// MaxCollectionsPerQuery are rejected.
	ActiveSellOrdersByCollections(ctx context.Context, addrs []string) ([]*model.Order, error)
	Close() error
}

func checkBatch(addrs []string) error {
	if len(addrs) > MaxCollectionsPerQuery {
		return errors.New("store: collection batch exceeds limit")
	}
	return nil
}

func touchesAny(o *model.Order, addrs []string) bool {
	for _, a := range addrs {
		norm := model.NormalizeAddress(a)
		for _, it := range o.Items {
			if model.NormalizeAddress(it.CollectionAddress) == norm {
				return true
			}
		}
	}
	return false
}
