package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/metrics"
)

// ExchangeName is the fanout exchange every change event goes to.
const ExchangeName = "expo.changes"

// Publisher sends change events to the feed.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// AMQPPublisher publishes persistent JSON messages to the fanout exchange.
// The connection is opened lazily and reopened after a failure, so the API
// keeps serving while the broker is down.
type AMQPPublisher struct {
	url string
	log *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: log}
}

// Publish marshals ev and publishes it.  Errors are logged and returned;
// callers treat them as non-fatal.
func (p *AMQPPublisher) Publish(ctx context.Context, ev ChangeEvent) error {
	msg, err := encode(ev)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(ev.Type, "error").Inc()
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		metrics.EventsPublished.WithLabelValues(ev.Type, "error").Inc()
		p.log.Warn("rabbitmq: channel unavailable", zap.String("event", ev.Type), zap.Error(err))
		return err
	}
	if err := ch.PublishWithContext(ctx, ExchangeName, "", false, false, msg); err != nil {
		p.reset()
		metrics.EventsPublished.WithLabelValues(ev.Type, "error").Inc()
		p.log.Warn("rabbitmq: publish failed", zap.String("event", ev.Type), zap.Error(err))
		return err
	}
	metrics.EventsPublished.WithLabelValues(ev.Type, "ok").Inc()
	return nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	p.ch, p.conn = nil, nil
	return err
}

// channel returns an open channel, dialing when needed.  Caller holds mu.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := declareExchange(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

func declareExchange(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		ExchangeName, // name
		"fanout",     // kind
		true,         // durable
		false,        // autoDelete
		false,        // internal
		false,        // noWait
		nil,          // args
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}

func encode(ev ChangeEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}
