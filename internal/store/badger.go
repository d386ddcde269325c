package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/model"
)

// BadgerStore is the default disk-backed Store: JSON order documents under
// per-(side, list) key prefixes in a BadgerDB instance.
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

// NewBadgerStore opens (or creates) a BadgerDB at path.
func NewBadgerStore(path string, logger *zap.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // disable internal logging
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db: %w", err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

// key format: order:{side}:{list}:{id}
func orderKey(side model.Side, list model.ListID, id string) []byte {
	return []byte(fmt.Sprintf("order:%s:%s:%s", side, list, id))
}

func listPrefix(side model.Side, list model.ListID) []byte {
	return []byte(fmt.Sprintf("order:%s:%s:", side, list))
}

func (s *BadgerStore) LoadAll(ctx context.Context, side model.Side, list model.ListID) ([]*model.Order, error) {
	orders := make([]*model.Order, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = listPrefix(side, list)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var o model.Order
			err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &o) })
			if err != nil {
				return err
			}
			orders = append(orders, &o)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading %s/%s orders: %w", side, list, err)
	}
	return orders, nil
}

func (s *BadgerStore) Upsert(ctx context.Context, side model.Side, list model.ListID, order *model.Order) error {
	val, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encoding order %s: %w", order.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(orderKey(side, list, order.ID), val)
	})
}

func (s *BadgerStore) Delete(ctx context.Context, side model.Side, list model.ListID, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(orderKey(side, list, id))
	})
}

func (s *BadgerStore) ActiveSellOrdersByCollections(ctx context.Context, addrs []string) ([]*model.Order, error) {
	if err := checkBatch(addrs); err != nil {
		return nil, err
	}
	all, err := s.LoadAll(ctx, model.SideSell, model.ListValidActive)
	if err != nil {
		return nil, err
	}
	var out []*model.Order
	for _, o := range all {
		if touchesAny(o, addrs) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }
