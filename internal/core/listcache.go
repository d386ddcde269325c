// Package core holds the order-book cache: an in-memory mirror of buy and
// sell orders partitioned into lifecycle lists, reconciled against the
// persistent store, with a greedy matching engine and background sweeps.
package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/model"
	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/store"
)

// listCache owns the six id-keyed maps (two sides x three lists). It is not
// safe for concurrent use on its own; the orchestrator's lock covers it.
type listCache struct {
	buys  map[model.ListID]map[string]*model.Order
	sells map[model.ListID]map[string]*model.Order
}

func newListCache() *listCache {
	c := &listCache{
		buys:  make(map[model.ListID]map[string]*model.Order, len(model.AllLists)),
		sells: make(map[model.ListID]map[string]*model.Order, len(model.AllLists)),
	}
	for _, list := range model.AllLists {
		c.buys[list] = make(map[string]*model.Order)
		c.sells[list] = make(map[string]*model.Order)
	}
	return c
}

// ordersOf returns the live backing map for (side, list).
func (c *listCache) ordersOf(side model.Side, list model.ListID) map[string]*model.Order {
	if side == model.SideSell {
		return c.sells[list]
	}
	return c.buys[list]
}

// expiredOrder pairs an expired order with the list it currently sits in.
type expiredOrder struct {
	List  model.ListID
	Order *model.Order
}

// allExpired scans validActive and validInactive on both sides for orders
// whose expiry has passed. The invalid list is skipped: orders there need no
// further expiry action.
func (c *listCache) allExpired(nowMs int64) []expiredOrder {
	var out []expiredOrder
	for _, list := range []model.ListID{model.ListValidActive, model.ListValidInactive} {
		for _, side := range []model.Side{model.SideBuy, model.SideSell} {
			for _, o := range c.ordersOf(side, list) {
				if o.IsExpired(nowMs) {
					out = append(out, expiredOrder{List: list, Order: o})
				}
			}
		}
	}
	return out
}

// load populates all six maps from the store. Runs once at construction;
// until it returns the cache is cold.
func (c *listCache) load(ctx context.Context, st store.Store, logger *zap.Logger) error {
	for _, side := range []model.Side{model.SideBuy, model.SideSell} {
		for _, list := range model.AllLists {
			orders, err := st.LoadAll(ctx, side, list)
			if err != nil {
				return fmt.Errorf("loading %s/%s: %w", side, list, err)
			}
			m := c.ordersOf(side, list)
			for _, o := range orders {
				m[o.ID] = o
			}
			logger.Info("loaded order list",
				zap.String("side", string(side)),
				zap.String("list", string(list)),
				zap.Int("orders", len(orders)))
		}
	}
	return nil
}
