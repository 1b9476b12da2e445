// Package jobs delivers order events to downstream consumers.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/oklog/ulid/v2"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/services"
)

// EventOrderPlaced is the event type attribute of order messages.
const EventOrderPlaced = "order.placed"

// PubSubOrderPublisher publishes order events to a Pub/Sub topic.
type PubSubOrderPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubOrderPublisher constructs a Pub/Sub backed order event publisher.
func NewPubSubOrderPublisher(topic *pubsub.Topic) (*PubSubOrderPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub order publisher: topic is required")
	}
	return &PubSubOrderPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishOrderPlaced enqueues an order.placed message and returns the server message id.
func (p *PubSubOrderPublisher) PublishOrderPlaced(ctx context.Context, event services.OrderPlacedEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub order publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal order event: %w", err)
	}

	attrs := map[string]string{"event": EventOrderPlaced}
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "visitorId", event.VisitorID)
	setAttr(attrs, "transferMethod", event.TransferMethod)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish order event: %w", err)
	}
	return id, nil
}

// LogOrderPublisher records order events through a logger hook when no topic is configured.
type LogOrderPublisher struct {
	logger func(ctx context.Context, event string, fields map[string]any)
}

// NewLogOrderPublisher constructs a log-only publisher.
func NewLogOrderPublisher(logger func(ctx context.Context, event string, fields map[string]any)) *LogOrderPublisher {
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &LogOrderPublisher{logger: logger}
}

// PublishOrderPlaced logs the event and returns a locally generated message id.
func (p *LogOrderPublisher) PublishOrderPlaced(ctx context.Context, event services.OrderPlacedEvent) (string, error) {
	id := "local-" + ulid.Make().String()
	p.logger(ctx, EventOrderPlaced, map[string]any{
		"messageId": id,
		"orderId":   event.OrderID,
		"items":     len(event.Items),
		"total":     event.Total,
	})
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
