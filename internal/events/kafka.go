package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/model"
)

// KafkaPublisher writes match events to a single Kafka topic, keyed by buy
// order id so re-published matches for the same order land on one partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher builds a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

func (p *KafkaPublisher) PublishMatch(ctx context.Context, match *model.MatchResult) error {
	event := newMatchEvent(match)
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding match event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(match.BuyOrder.ID),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing match for buy order %s: %w", match.BuyOrder.ID, err)
	}
	p.logger.Debug("published match event",
		zap.String("event_id", event.ID),
		zap.String("buy_order", match.BuyOrder.ID),
		zap.Int("sell_orders", len(match.SellOrders)))
	return nil
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
