// Package events publishes executed match results for the external
// settlement executor. The order-book cache only does its own bookkeeping on
// a match; whatever performs the actual trade consumes these events.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/model"
)

// MatchEvent is the wire shape of an executed match.
type MatchEvent struct {
	ID         string         `json:"id"`
	OccurredAt int64          `json:"occurredAt"` // epoch milliseconds
	BuyOrder   *model.Order   `json:"buyOrder"`
	SellOrders []*model.Order `json:"sellOrders"`
}

func newMatchEvent(m *model.MatchResult) MatchEvent {
	return MatchEvent{
		ID:         uuid.NewString(),
		OccurredAt: time.Now().UnixMilli(),
		BuyOrder:   m.BuyOrder,
		SellOrders: m.SellOrders,
	}
}

// Publisher delivers match events to the settlement side.
type Publisher interface {
	PublishMatch(ctx context.Context, match *model.MatchResult) error
	Close() error
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishMatch(ctx context.Context, match *model.MatchResult) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
