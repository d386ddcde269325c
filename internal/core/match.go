package core

import (
	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/model"
)

// findMatchForBuy runs the greedy fill over sells, which must already be
// sorted by current price ascending. Starting with the buy order's current
// price as cash, it takes each sell while items remain and the cash covers
// the price, and stops at the first sell it cannot afford — a later, cheaper
// order after a skipped expensive one is never reconsidered.
//
// A match is returned only on an exact fill of the buy order's item count.
// Partial fills are discarded: all-or-nothing.
func findMatchForBuy(buy *model.Order, sells []*model.Order, nowMs int64) (*model.MatchResult, bool) {
	if len(sells) == 0 {
		return nil, false
	}

	cash := buy.CurrentPriceAt(nowMs)
	remaining := buy.NumItems
	chosen := make([]*model.Order, 0, remaining)

	for _, sell := range sells {
		price := sell.CurrentPriceAt(nowMs)
		if remaining > 0 && cash.GreaterThanOrEqual(price) {
			chosen = append(chosen, sell)
			cash = cash.Sub(price)
			remaining--
			continue
		}
		break
	}

	if int64(len(chosen)) != buy.NumItems {
		return nil, false
	}
	return &model.MatchResult{BuyOrder: buy, SellOrders: chosen}, true
}
