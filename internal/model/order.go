package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Side distinguishes the two halves of the order book.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ListID identifies one of the three lifecycle partitions of the order cache.
// Transitions are one-directional: validActive -> validInactive on a match,
// validActive/validInactive -> invalid on expiry. Nothing leaves invalid.
type ListID string

const (
	ListValidActive   ListID = "validActive"
	ListValidInactive ListID = "validInactive"
	ListInvalid       ListID = "invalid"
)

// AllLists enumerates the lifecycle partitions in load order.
var AllLists = []ListID{ListValidActive, ListValidInactive, ListInvalid}

// ValidList reports whether s names a known list partition.
func ValidList(s string) bool {
	switch ListID(s) {
	case ListValidActive, ListValidInactive, ListInvalid:
		return true
	}
	return false
}

// ValidSide reports whether s names a known book side.
func ValidSide(s string) bool {
	return Side(s) == SideBuy || Side(s) == SideSell
}

// OrderItem is a single NFT position referenced by an order.
type OrderItem struct {
	CollectionAddress string `json:"collectionAddress"`
	TokenID           string `json:"tokenId"`
	Quantity          int64  `json:"quantity"`
}

// Order describes a buy or sell intent for one or more NFT items at a price
// that may decay linearly between StartTime and EndTime (Dutch auction) or
// stay fixed when StartPrice == EndPrice.
//
// Orders are value objects: once created, nothing is mutated in place. List
// membership changes are modeled as moving the order between partitions.
type Order struct {
	// ID is a hex SHA-256 content hash over the order's economic terms, so
	// identical submissions collide to the same id and dedupe naturally.
	ID          string          `json:"id"`
	IsSellOrder bool            `json:"isSellOrder"`
	Maker       string          `json:"maker"`
	NumItems    int64           `json:"numItems"`
	StartPrice  decimal.Decimal `json:"startPrice"`
	EndPrice    decimal.Decimal `json:"endPrice"`
	// StartTime and EndTime are epoch milliseconds. EndTime == 0 means the
	// order never expires.
	StartTime int64       `json:"startTime"`
	EndTime   int64       `json:"endTime"`
	Items     []OrderItem `json:"items"`
	Currency  string      `json:"currency"`
}

// Side derives the book side from the sell flag.
func (o *Order) Side() Side {
	if o.IsSellOrder {
		return SideSell
	}
	return SideBuy
}

// IsExpired reports whether the order has expired as of nowMs (epoch
// milliseconds). The zero EndTime is the never-expires sentinel.
func (o *Order) IsExpired(nowMs int64) bool {
	if o.EndTime == 0 {
		return false
	}
	return o.EndTime <= nowMs
}

// CurrentPriceAt returns the time-interpolated price at nowMs: StartPrice
// before StartTime, EndPrice at or after EndTime, linear in between. Orders
// without an expiry horizon are priced at StartPrice.
func (o *Order) CurrentPriceAt(nowMs int64) decimal.Decimal {
	if o.EndTime == 0 || o.EndTime <= o.StartTime || o.StartPrice.Equal(o.EndPrice) {
		return o.StartPrice
	}
	if nowMs <= o.StartTime {
		return o.StartPrice
	}
	if nowMs >= o.EndTime {
		return o.EndPrice
	}
	elapsed := decimal.NewFromInt(nowMs - o.StartTime)
	span := decimal.NewFromInt(o.EndTime - o.StartTime)
	return o.StartPrice.Add(o.EndPrice.Sub(o.StartPrice).Mul(elapsed).Div(span))
}

// CollectionAddresses returns the distinct normalized collection addresses
// referenced by the order, preserving first-seen order.
func (o *Order) CollectionAddresses() []string {
	seen := make(map[string]struct{}, len(o.Items))
	addrs := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		a := NormalizeAddress(it.CollectionAddress)
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		addrs = append(addrs, a)
	}
	return addrs
}

// NormalizeAddress lowercases a hex address into the canonical form used for
// hashing and index keys.
func NormalizeAddress(addr string) string {
	if common.IsHexAddress(addr) {
		return strings.ToLower(common.HexToAddress(addr).Hex())
	}
	return strings.ToLower(addr)
}

// Hash computes the content-addressed id over the order's economic terms.
// List membership is deliberately excluded so an order keeps its id across
// lifecycle moves.
func (o *Order) Hash() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v|%s|%d|%s|%s|%d|%d|%s",
		o.IsSellOrder,
		NormalizeAddress(o.Maker),
		o.NumItems,
		o.StartPrice.String(),
		o.EndPrice.String(),
		o.StartTime,
		o.EndTime,
		NormalizeAddress(o.Currency),
	)
	for _, it := range o.Items {
		fmt.Fprintf(&b, "|%s:%s:%d", NormalizeAddress(it.CollectionAddress), it.TokenID, it.Quantity)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return "0x" + hex.EncodeToString(sum[:])
}

// Validate checks the structural constraints an order must satisfy before it
// enters the book.
func (o *Order) Validate() error {
	if o.NumItems < 1 {
		return fmt.Errorf("order must want at least one item, got %d", o.NumItems)
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("order must reference at least one item")
	}
	if !common.IsHexAddress(o.Maker) {
		return fmt.Errorf("invalid maker address %q", o.Maker)
	}
	if o.StartPrice.LessThan(o.EndPrice) {
		return fmt.Errorf("start price %s below end price %s", o.StartPrice, o.EndPrice)
	}
	if o.EndTime != 0 && o.EndTime < o.StartTime {
		return fmt.Errorf("end time %d before start time %d", o.EndTime, o.StartTime)
	}
	for _, it := range o.Items {
		if !common.IsHexAddress(it.CollectionAddress) {
			return fmt.Errorf("invalid collection address %q", it.CollectionAddress)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("item %s quantity must be positive", it.TokenID)
		}
	}
	return nil
}

// MatchResult pairs a buy order with the exact set of sell orders chosen to
// fill it. It is ephemeral: never persisted as its own entity, only realized
// as the list moves of its constituent orders.
type MatchResult struct {
	BuyOrder   *Order   `json:"buyOrder"`
	SellOrders []*Order `json:"sellOrders"`
}
