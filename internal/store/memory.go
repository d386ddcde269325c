package store

import (
	"context"
	"sync"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/model"
)

// MemoryStore is a map-backed Store used by tests and by deployments that opt
// out of persistence entirely.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[model.Side]map[model.ListID]map[string]*model.Order
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	docs := make(map[model.Side]map[model.ListID]map[string]*model.Order, 2)
	for _, side := range []model.Side{model.SideBuy, model.SideSell} {
		docs[side] = make(map[model.ListID]map[string]*model.Order, len(model.AllLists))
		for _, list := range model.AllLists {
			docs[side][list] = make(map[string]*model.Order)
		}
	}
	return &MemoryStore{docs: docs}
}

func (s *MemoryStore) LoadAll(ctx context.Context, side model.Side, list model.ListID) ([]*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll := s.docs[side][list]
	out := make([]*model.Order, 0, len(coll))
	for _, o := range coll {
		out = append(out, o)
	}
	return out, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, side model.Side, list model.ListID, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[side][list][order.ID] = order
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, side model.Side, list model.ListID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[side][list], id)
	return nil
}

func (s *MemoryStore) ActiveSellOrdersByCollections(ctx context.Context, addrs []string) ([]*model.Order, error) {
	if err := checkBatch(addrs); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Order
	for _, o := range s.docs[model.SideSell][model.ListValidActive] {
		if touchesAny(o, addrs) {
			out = append(out, o)
		}
	}
	return out, nil
}

// Contains reports whether the (side, list) collection holds id. Test helper.
func (s *MemoryStore) Contains(side model.Side, list model.ListID, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[side][list][id]
	return ok
}

func (s *MemoryStore) Close() error { return nil }
