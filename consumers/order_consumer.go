package consumers

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"grocery-orders/config"
	"grocery-orders/models"
	"grocery-orders/rabbitmq"
	"grocery-orders/services"
)

type OrderConsumer struct {
	mailer services.Notifier
	log    *zap.Logger
}

func NewOrderConsumer(mailer services.Notifier, log *zap.Logger) *OrderConsumer {
	return &OrderConsumer{mailer: mailer, log: log}
}

// Start consumes the event, email and dead-letter queues until ctx is done
// or the channel closes.
func (oc *OrderConsumer) Start(ctx context.Context, ch *amqp.Channel, cfg *config.Config) error {
	queues := []struct {
		name    string
		tag     string
		handler func(context.Context, amqp.Delivery)
	}{
		{cfg.OrderQueue, "grocery-orders-events", oc.processOrderEvent},
		{cfg.EmailQueue, "grocery-orders-email", oc.processEmailJob},
		{cfg.DeadLetterQueue, "grocery-orders-dlq", oc.processDeadLetter},
	}

	for _, q := range queues {
		msgs, err := ch.Consume(
			q.name,
			q.tag,
			false, // auto-ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("consume %s: %w", q.name, err)
		}

		go func(handle func(context.Context, amqp.Delivery), msgs <-chan amqp.Delivery) {
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-msgs:
					if !ok {
						return
					}
					handle(ctx, msg)
				}
			}
		}(q.handler, msgs)
	}
	return nil
}

func (oc *OrderConsumer) processOrderEvent(ctx context.Context, msg amqp.Delivery) {
	defer oc.recoverAndReject(msg)

	ev, err := rabbitmq.DecodeOrderEvent(msg.Body)
	if err != nil {
		oc.log.Warn("invalid order event", zap.ByteString("body", msg.Body), zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	switch ev.Type {
	case models.EventCreated:
		oc.log.Info("order created event",
			zap.String("order_number", ev.OrderNumber),
			zap.String("total", ev.Total.StringFixed(2)))
	case models.EventStatusUpdated:
		oc.log.Info("order status event",
			zap.String("order_number", ev.OrderNumber),
			zap.String("status", string(ev.Status)))
	default:
		oc.log.Warn("unknown order event type", zap.String("type", ev.Type))
	}
	_ = msg.Ack(false)
}

// processEmailJob sends one order email. Failed sends go to the dead-letter
// queue instead of being retried in a loop.
func (oc *OrderConsumer) processEmailJob(ctx context.Context, msg amqp.Delivery) {
	defer oc.recoverAndReject(msg)

	job, err := rabbitmq.DecodeEmailJob(msg.Body)
	if err != nil {
		oc.log.Warn("invalid email job", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	if err := oc.mailer.Send(ctx, &job.Order, job.Recipient, job.AdminCopy); err != nil {
		oc.log.Error("order email failed",
			zap.String("order_number", job.Order.OrderNumber),
			zap.Bool("admin_copy", job.AdminCopy),
			zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false)
}

func (oc *OrderConsumer) processDeadLetter(_ context.Context, msg amqp.Delivery) {
	reason := ""
	if deaths, ok := msg.Headers["x-death"].([]interface{}); ok && len(deaths) > 0 {
		if d, ok := deaths[0].(amqp.Table); ok {
			reason, _ = d["reason"].(string)
		}
	}
	oc.log.Error("dead letter",
		zap.String("routing_key", msg.RoutingKey),
		zap.String("reason", reason),
		zap.ByteString("body", msg.Body))
	_ = msg.Ack(false)
}

func (oc *OrderConsumer) recoverAndReject(msg amqp.Delivery) {
	if r := recover(); r != nil {
		oc.log.Error("panic while processing message", zap.Any("panic", r))
		_ = msg.Nack(false, false)
	}
}
