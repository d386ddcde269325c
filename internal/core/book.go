package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/events"
	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/model"
	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/store"
)

// OrderBook is the public surface of the order cache. It owns the list maps,
// mediates every add/delete/move, keeps memory and store in sync, and runs
// matching. Construct one per service; there is no ambient singleton.
//
// Error model: not-found conditions are logged warnings and silent no-ops.
// Store I/O failures are logged and not propagated into memory state, so
// memory and store can diverge after a failed write; the only recovery path
// is a full reload through NewOrderBook.
type OrderBook struct {
	mu     sync.RWMutex
	lists  *listCache
	st     store.Store
	pub    events.Publisher
	logger *zap.Logger

	// nowMs is the millisecond clock, overridable in tests.
	nowMs func() int64
}

// NewOrderBook builds the cache and performs the six bulk loads from the
// store before returning.
func NewOrderBook(ctx context.Context, st store.Store, pub events.Publisher, logger *zap.Logger) (*OrderBook, error) {
	b := &OrderBook{
		lists:  newListCache(),
		st:     st,
		pub:    pub,
		logger: logger,
		nowMs:  func() int64 { return time.Now().UnixMilli() },
	}
	if err := b.lists.load(ctx, st, logger); err != nil {
		return nil, err
	}
	return b, nil
}

// Add inserts the order into the given list on its own side. Duplicate ids
// are a logged no-op, which makes resubmission of an identical order safe.
func (b *OrderBook) Add(ctx context.Context, list model.ListID, order *model.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.add(ctx, list, order)
}

// Delete removes the order from the given (side, list) collection. Absent
// ids are a logged no-op.
func (b *OrderBook) Delete(ctx context.Context, side model.Side, list model.ListID, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.del(ctx, side, list, id)
}

// Move transfers the order from one list to another on its own side, as an
// add to the destination followed by a delete from the source. The two steps
// are not atomic: a crash in between can leave the order present in both
// lists or, if the add's store write failed, only in the source. Callers
// accept this window; it is part of the contract, not hidden.
func (b *OrderBook) Move(ctx context.Context, order *model.Order, from, to model.ListID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.move(ctx, order, from, to)
}

func (b *OrderBook) add(ctx context.Context, list model.ListID, order *model.Order) {
	side := order.Side()
	m := b.lists.ordersOf(side, list)
	if _, exists := m[order.ID]; exists {
		b.logger.Warn("order already in list, skipping add",
			zap.String("id", order.ID),
			zap.String("side", string(side)),
			zap.String("list", string(list)))
		return
	}
	if err := b.st.Upsert(ctx, side, list, order); err != nil {
		b.logger.Error("persisting order failed",
			zap.String("id", order.ID),
			zap.String("list", string(list)),
			zap.Error(err))
	}
	m[order.ID] = order
}

func (b *OrderBook) del(ctx context.Context, side model.Side, list model.ListID, id string) {
	m := b.lists.ordersOf(side, list)
	if _, exists := m[id]; !exists {
		b.logger.Warn("order not in list, skipping delete",
			zap.String("id", id),
			zap.String("side", string(side)),
			zap.String("list", string(list)))
		return
	}
	if err := b.st.Delete(ctx, side, list, id); err != nil {
		b.logger.Error("deleting order from store failed",
			zap.String("id", id),
			zap.String("list", string(list)),
			zap.Error(err))
	}
	delete(m, id)
}

func (b *OrderBook) move(ctx context.Context, order *model.Order, from, to model.ListID) {
	b.add(ctx, to, order)
	b.del(ctx, order.Side(), from, order.ID)
}

// ExecuteMatch looks up the buy order in validActive, runs the matching
// engine against a fresh sell index, and on success moves the buy order and
// every chosen sell order to validInactive, then publishes the result for
// the external settlement executor. The move happens before publication;
// there is no rollback hook, so a failed settlement re-enters through
// ordinary order intake. A missing buy order is "no match", not an error.
func (b *OrderBook) ExecuteMatch(ctx context.Context, buyOrderID string) (*model.MatchResult, bool) {
	b.mu.Lock()
	buy, ok := b.lists.ordersOf(model.SideBuy, model.ListValidActive)[buyOrderID]
	if !ok {
		b.mu.Unlock()
		b.logger.Warn("buy order not active, no match", zap.String("id", buyOrderID))
		return nil, false
	}

	idx := newSellIndex(b.st, b.nowMs, b.logger)
	sells := idx.ordersForBuy(ctx, buy)
	match, found := findMatchForBuy(buy, sells, b.nowMs())
	if !found {
		b.mu.Unlock()
		return nil, false
	}

	b.move(ctx, buy, model.ListValidActive, model.ListValidInactive)
	for _, sell := range match.SellOrders {
		b.move(ctx, sell, model.ListValidActive, model.ListValidInactive)
	}
	b.mu.Unlock()

	if err := b.pub.PublishMatch(ctx, match); err != nil {
		b.logger.Error("publishing match failed",
			zap.String("buy_order", buyOrderID), zap.Error(err))
	}
	b.logger.Info("executed match",
		zap.String("buy_order", buyOrderID),
		zap.Int("sell_orders", len(match.SellOrders)))
	return match, true
}

// AllMatches attempts a match for every non-expired validActive buy order
// and returns the successes without executing them. One sell index is shared
// across the sweep so repeated collection lookups are served from memory.
func (b *OrderBook) AllMatches(ctx context.Context) []*model.MatchResult {
	b.mu.RLock()
	active := b.lists.ordersOf(model.SideBuy, model.ListValidActive)
	buys := make([]*model.Order, 0, len(active))
	for _, o := range active {
		buys = append(buys, o)
	}
	b.mu.RUnlock()

	now := b.nowMs()
	idx := newSellIndex(b.st, b.nowMs, b.logger)
	var matches []*model.MatchResult
	for _, buy := range buys {
		if buy.IsExpired(now) {
			continue
		}
		sells := idx.ordersForBuy(ctx, buy)
		if match, found := findMatchForBuy(buy, sells, now); found {
			matches = append(matches, match)
		}
	}
	return matches
}

// SweepExpired moves every expired order in the two valid lists to invalid
// and returns how many were moved.
func (b *OrderBook) SweepExpired(ctx context.Context) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	expired := b.lists.allExpired(b.nowMs())
	for _, e := range expired {
		b.logger.Info("order expired",
			zap.String("id", e.Order.ID),
			zap.String("list", string(e.List)))
		b.move(ctx, e.Order, e.List, model.ListInvalid)
	}
	return len(expired)
}

// Orders returns a snapshot of the (side, list) collection.
func (b *OrderBook) Orders(side model.Side, list model.ListID) []*model.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m := b.lists.ordersOf(side, list)
	out := make([]*model.Order, 0, len(m))
	for _, o := range m {
		out = append(out, o)
	}
	return out
}

// Contains reports whether the (side, list) collection holds the id.
func (b *OrderBook) Contains(side model.Side, list model.ListID, id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.lists.ordersOf(side, list)[id]
	return ok
}
