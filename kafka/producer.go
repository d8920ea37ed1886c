package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"grocery-orders/models"
)

type syncProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// OrderProducer publishes order events keyed by order id, so every event of
// one order lands on the same partition in order.
type OrderProducer struct {
	client syncProducer
	topic  string
	log    *zap.Logger
}

func NewOrderProducer(brokers []string, topic string, log *zap.Logger) (*OrderProducer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	log.Info("kafka producer created", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &OrderProducer{client: client, topic: topic, log: log}, nil
}

func (p *OrderProducer) PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}

	rec := &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(ev.OrderID),
		Value:     payload,
		Timestamp: ev.Occurred,
		Headers:   []kgo.RecordHeader{{Key: "event_type", Value: []byte(ev.Type)}},
	}

	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		p.log.Error("kafka publish failed",
			zap.String("topic", p.topic),
			zap.String("order_number", ev.OrderNumber),
			zap.Error(err))
		return fmt.Errorf("publish to kafka topic %s: %w", p.topic, err)
	}
	return nil
}

func (p *OrderProducer) Close() {
	p.log.Info("closing kafka producer", zap.String("topic", p.topic))
	p.client.Close()
}
