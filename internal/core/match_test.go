package core

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/model"
)

const (
	testMaker      = "0x1111111111111111111111111111111111111111"
	testTaker      = "0x3333333333333333333333333333333333333333"
	testCollection = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testCurrency   = "0x2222222222222222222222222222222222222222"
)

// testOrder builds a fixed-price, never-expiring order on the test
// collection. tokenID varies the content hash so orders get distinct ids.
func testOrder(sell bool, price string, numItems int64, tokenID string) *model.Order {
	p := decimal.RequireFromString(price)
	maker := testMaker
	if !sell {
		maker = testTaker
	}
	o := &model.Order{
		IsSellOrder: sell,
		Maker:       maker,
		NumItems:    numItems,
		StartPrice:  p,
		EndPrice:    p,
		Items: []model.OrderItem{
			{CollectionAddress: testCollection, TokenID: tokenID, Quantity: 1},
		},
		Currency: testCurrency,
	}
	o.ID = o.Hash()
	return o
}

func sellsAt(prices ...string) []*model.Order {
	out := make([]*model.Order, 0, len(prices))
	for i, p := range prices {
		out = append(out, testOrder(true, p, 1, fmt.Sprintf("sell-%d", i)))
	}
	return out
}

func TestFindMatchForBuy(t *testing.T) {
	t.Run("NoSellsNoMatch", func(t *testing.T) {
		buy := testOrder(false, "3", 1, "buy")
		_, found := findMatchForBuy(buy, nil, 0)
		assert.False(t, found)
	})

	t.Run("GreedyExactFill", func(t *testing.T) {
		// cash 3, two items wanted, sells at [1 2 5]: takes 1 and 2
		buy := testOrder(false, "3", 2, "buy")
		sells := sellsAt("1", "2", "5")
		match, found := findMatchForBuy(buy, sells, 0)
		require.True(t, found)
		require.Len(t, match.SellOrders, 2)
		assert.Equal(t, sells[0].ID, match.SellOrders[0].ID)
		assert.Equal(t, sells[1].ID, match.SellOrders[1].ID)
	})

	t.Run("CashExhaustedNoMatch", func(t *testing.T) {
		// cash 3, three items wanted; after 1+2 nothing is affordable
		buy := testOrder(false, "3", 3, "buy")
		_, found := findMatchForBuy(buy, sellsAt("1", "2", "5"), 0)
		assert.False(t, found)
	})

	t.Run("AllOrNothing", func(t *testing.T) {
		// three wanted, only two sells exist: partial fill is discarded
		buy := testOrder(false, "10", 3, "buy")
		_, found := findMatchForBuy(buy, sellsAt("1", "2"), 0)
		assert.False(t, found)
	})

	t.Run("StopsAtFirstUnaffordable", func(t *testing.T) {
		// greedy walk never looks past a sell it cannot afford, even when a
		// later one would fit
		buy := testOrder(false, "5", 2, "buy")
		_, found := findMatchForBuy(buy, sellsAt("1", "5", "2"), 0)
		assert.False(t, found)
	})

	t.Run("ExactBudgetMatches", func(t *testing.T) {
		buy := testOrder(false, "3", 2, "buy")
		match, found := findMatchForBuy(buy, sellsAt("1", "2"), 0)
		require.True(t, found)
		assert.Len(t, match.SellOrders, 2)
	})
}
