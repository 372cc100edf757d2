package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quizmind/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

const appID = "quizmind"

// RabbitMQClient routes each channel to the queue of the same name on the
// default exchange, so every published event waits for one consumer.
type RabbitMQClient struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	durable   bool
	transient bool
}

func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err == nil && cfg.PrefetchCount > 0 {
		err = ch.Qos(cfg.PrefetchCount, 0, false)
	}
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQClient{
		conn:      conn,
		ch:        ch,
		durable:   cfg.QueueDurable,
		transient: cfg.QueueAutoDelete,
	}, nil
}

// Publish makes sure the channel's queue exists and sends one event to it.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if err := r.declare(channel); err != nil {
		return "", err
	}
	msg := eventPublishing(channel, data, attrs, time.Now())
	if err := r.ch.PublishWithContext(ctx, "", channel, false, false, msg); err != nil {
		return "", fmt.Errorf("publish %s: %w", channel, err)
	}
	return msg.MessageId, nil
}

// Subscribe hands each event on channel to handler until ctx is done.
// A handler error puts the event back on the queue and ends the subscription.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if err := r.declare(channel); err != nil {
		return err
	}

	tag := appID + "-" + uuid.NewString()
	deliveries, err := r.ch.ConsumeWithContext(ctx, channel, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", channel, err)
	}
	defer func() { _ = r.ch.Cancel(tag, false) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("consume %s: delivery channel closed", channel)
			}
			msg := Message{ID: d.MessageId, Data: d.Body, Attributes: headersToAttributes(d.Headers)}
			if err := handler(ctx, msg); err != nil {
				_ = d.Nack(false, true)
				return err
			}
			if err := d.Ack(false); err != nil {
				return fmt.Errorf("ack %s: %w", d.MessageId, err)
			}
		}
	}
}

func (r *RabbitMQClient) Close() error {
	_ = r.ch.Close()
	return r.conn.Close()
}

func (r *RabbitMQClient) declare(channel string) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}
	if _, err := r.ch.QueueDeclare(channel, r.durable, r.transient, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", channel, err)
	}
	return nil
}

// eventPublishing builds a persistent message carrying attrs as headers.
// The channel doubles as the AMQP message type.
func eventPublishing(channel string, data []byte, attrs map[string]string, now time.Time) amqp.Publishing {
	headers := make(amqp.Table, len(attrs))
	for k, v := range attrs {
		headers[k] = v
	}
	contentType := attrs[attrContentType]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return amqp.Publishing{
		AppId:        appID,
		Type:         channel,
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now.UTC(),
		Headers:      headers,
		Body:         data,
	}
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for k, v := range headers {
		switch typed := v.(type) {
		case string:
			attrs[k] = typed
		case []byte:
			attrs[k] = string(typed)
		default:
			attrs[k] = fmt.Sprint(v)
		}
	}
	return attrs
}
