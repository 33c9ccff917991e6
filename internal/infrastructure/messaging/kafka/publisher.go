package kafka

import (
	"context"

	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
)

// publisher is the part of Producer the event publisher needs.
type publisher interface {
	Publish(ctx context.Context, msg *ProducerMessage) error
}

// EventPublisher wraps payloads in an EventEnvelope and publishes them on a
// single topic.
type EventPublisher struct {
	producer publisher
	topic    string
	source   string
	logger   logging.Logger
}

// NewEventPublisher publishes on topic, stamping source on every envelope.
func NewEventPublisher(p publisher, topic, source string, log logging.Logger) *EventPublisher {
	if topic == "" {
		topic = TopicClaimAnalyzed
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &EventPublisher{producer: p, topic: topic, source: source, logger: log}
}

// Topic returns the destination topic.
func (e *EventPublisher) Topic() string { return e.topic }

// PublishEvent encodes payload and publishes it keyed by key.
func (e *EventPublisher) PublishEvent(ctx context.Context, eventType, key string, payload any) error {
	env, err := NewEventEnvelope(eventType, e.source, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(e.topic, key)
	if err != nil {
		return err
	}
	if err := e.producer.Publish(ctx, msg); err != nil {
		return err
	}
	e.logger.Debug("Event published",
		logging.String("event_type", eventType),
		logging.String("event_id", env.EventID),
		logging.String("key", key))
	return nil
}
