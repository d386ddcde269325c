package core

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/model"
	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/store"
)

// sellIndex is a lazy per-collection index of active, non-expired sell
// orders. It is built incrementally as buy-order matching touches new
// collections and shared across a match sweep so repeated collection lookups
// hit memory, not the store.
type sellIndex struct {
	st     store.Store
	logger *zap.Logger
	nowMs  func() int64

	byCollection map[string][]*model.Order
}

func newSellIndex(st store.Store, nowMs func() int64, logger *zap.Logger) *sellIndex {
	return &sellIndex{
		st:           st,
		logger:       logger,
		nowMs:        nowMs,
		byCollection: make(map[string][]*model.Order),
	}
}

// ensureCollections fetches sell orders for any address not yet indexed,
// chunking bulk queries to the store's batch ceiling. Expired orders are
// filtered out; each surviving order is filed under every collection it
// references.
func (x *sellIndex) ensureCollections(ctx context.Context, addrs []string) {
	var missing []string
	for _, a := range addrs {
		norm := model.NormalizeAddress(a)
		if _, ok := x.byCollection[norm]; !ok {
			missing = append(missing, norm)
			// mark as indexed even if the query returns nothing for it
			x.byCollection[norm] = nil
		}
	}
	now := x.nowMs()
	for start := 0; start < len(missing); start += store.MaxCollectionsPerQuery {
		end := start + store.MaxCollectionsPerQuery
		if end > len(missing) {
			end = len(missing)
		}
		chunk := missing[start:end]
		orders, err := x.st.ActiveSellOrdersByCollections(ctx, chunk)
		if err != nil {
			x.logger.Error("fetching active sell orders failed",
				zap.Strings("collections", chunk), zap.Error(err))
			continue
		}
		for _, o := range orders {
			if o.IsExpired(now) {
				continue
			}
			for _, addr := range o.CollectionAddresses() {
				if _, wanted := x.byCollection[addr]; wanted {
					x.byCollection[addr] = append(x.byCollection[addr], o)
				}
			}
		}
	}
}

// ordersForBuy returns the sell orders across the buy order's collections,
// deduplicated by id and sorted by current price ascending. The sort is
// stable so equal-price orders keep their insertion order and results stay
// deterministic.
func (x *sellIndex) ordersForBuy(ctx context.Context, buy *model.Order) []*model.Order {
	addrs := buy.CollectionAddresses()
	x.ensureCollections(ctx, addrs)

	seen := make(map[string]struct{})
	var sells []*model.Order
	for _, addr := range addrs {
		for _, o := range x.byCollection[addr] {
			if _, dup := seen[o.ID]; dup {
				continue
			}
			seen[o.ID] = struct{}{}
			sells = append(sells, o)
		}
	}

	now := x.nowMs()
	sort.SliceStable(sells, func(i, j int) bool {
		return sells[i].CurrentPriceAt(now).LessThan(sells[j].CurrentPriceAt(now))
	})
	return sells
}

// candidatesBelowBudget narrows ordersForBuy to sells whose current price
// does not exceed the buy order's current price.
func (x *sellIndex) candidatesBelowBudget(ctx context.Context, buy *model.Order) []*model.Order {
	now := x.nowMs()
	budget := buy.CurrentPriceAt(now)
	var out []*model.Order
	for _, o := range x.ordersForBuy(ctx, buy) {
		if o.CurrentPriceAt(now).LessThanOrEqual(budget) {
			out = append(out, o)
		}
	}
	return out
}
