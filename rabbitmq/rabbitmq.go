package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"grocery-orders/config"
	"grocery-orders/models"
)

const (
	EmailRoutingKey   = "email.order"
	eventRoutingBind  = "order.#"
	defaultPriority   = 5
	cancelledPriority = 8
	adminCopyPriority = 9
)

// channel is the part of *amqp.Channel used for publishing.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Cfg     *config.Config

	mu  sync.Mutex
	pub channel
	now func() time.Time
}

func NewRabbitMQ(cfg *config.Config) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &RabbitMQ{
		Conn:    conn,
		Channel: ch,
		Cfg:     cfg,
		pub:     ch,
		now:     time.Now,
	}, nil
}

func (r *RabbitMQ) deadLetterExchange() string {
	return r.Cfg.DeadLetterQueue + "_exchange"
}

// SetupQueues declares the order exchange, the event and email queues bound
// to it, and the dead-letter exchange both queues reject into.
func (r *RabbitMQ) SetupQueues() error {
	if err := r.Channel.ExchangeDeclare(
		r.deadLetterExchange(),
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare dead letter exchange: %w", err)
	}

	if _, err := r.Channel.QueueDeclare(
		r.Cfg.DeadLetterQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-queue-type": "classic"},
	); err != nil {
		return fmt.Errorf("declare dead letter queue: %w", err)
	}

	if err := r.Channel.QueueBind(r.Cfg.DeadLetterQueue, r.Cfg.DeadLetterQueue, r.deadLetterExchange(), false, nil); err != nil {
		return fmt.Errorf("bind dead letter queue: %w", err)
	}

	if err := r.Channel.ExchangeDeclare(
		r.Cfg.OrderExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare order exchange: %w", err)
	}

	bindings := []struct {
		queue string
		key   string
	}{
		{r.Cfg.OrderQueue, eventRoutingBind},
		{r.Cfg.EmailQueue, EmailRoutingKey},
	}
	for _, b := range bindings {
		if _, err := r.Channel.QueueDeclare(
			b.queue,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			amqp.Table{
				"x-max-priority":            r.Cfg.MaxPriority,
				"x-dead-letter-exchange":    r.deadLetterExchange(),
				"x-dead-letter-routing-key": r.Cfg.DeadLetterQueue,
			},
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.queue, err)
		}
		if err := r.Channel.QueueBind(b.queue, b.key, r.Cfg.OrderExchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", b.queue, err)
		}
	}
	return nil
}

// PublishOrderEvent routes ev as order.<type>. Cancellations jump the queue.
func (r *RabbitMQ) PublishOrderEvent(ctx context.Context, ev models.OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}
	priority := defaultPriority
	if ev.Status == models.StatusCancelled {
		priority = cancelledPriority
	}
	return r.publish(ctx, "order."+ev.Type, body, priority)
}

// Send implements services.Notifier by queueing an email job for the
// consumer; the SMTP round trip happens off the request path.
func (r *RabbitMQ) Send(ctx context.Context, o *models.Order, recipient string, isAdminCopy bool) error {
	body, err := EncodeEmailJob(EmailJob{Recipient: recipient, AdminCopy: isAdminCopy, Order: *o})
	if err != nil {
		return err
	}
	priority := defaultPriority
	if isAdminCopy {
		priority = adminCopyPriority
	}
	return r.publish(ctx, EmailRoutingKey, body, priority)
}

func (r *RabbitMQ) publish(ctx context.Context, key string, body []byte, priority int) error {
	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    r.now(),
		ContentType:  "application/json",
		Body:         body,
		Priority:     uint8(priority),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.pub.PublishWithContext(ctx, r.Cfg.OrderExchange, key, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

func (r *RabbitMQ) Close() {
	if r.Channel != nil {
		_ = r.Channel.Close()
	}
	if r.Conn != nil {
		_ = r.Conn.Close()
	}
}
