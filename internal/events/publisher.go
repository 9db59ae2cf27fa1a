package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventPublisher publishes domain events after the owning transaction commits
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

type PublisherConfig struct {
	KafkaBrokers []string
	TopicPrefix  string
}

// WatermillPublisher fans every event out to an in-process bus and, when
// brokers are configured, to Kafka. Live monitors subscribe to the local bus.
type WatermillPublisher struct {
	local       *gochannel.GoChannel
	broker      message.Publisher
	topicPrefix string
	logger      *slog.Logger
}

func NewWatermillPublisher(config PublisherConfig, logger *slog.Logger) (*WatermillPublisher, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	p := &WatermillPublisher{
		local: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, wmLogger),
		topicPrefix: config.TopicPrefix,
		logger:      logger,
	}

	if len(config.KafkaBrokers) > 0 {
		broker, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   config.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err != nil {
			p.local.Close()
			return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		p.broker = broker
	}

	return p, nil
}

func (p *WatermillPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.Type, err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("source", event.Source)
	msg.SetContext(ctx)

	if err := p.local.Publish(event.Type, msg); err != nil {
		return fmt.Errorf("failed to publish %s locally: %w", event.Type, err)
	}

	if p.broker != nil {
		topic := p.brokerTopic(event.Type)
		if err := p.broker.Publish(topic, msg.Copy()); err != nil {
			return fmt.Errorf("failed to publish %s to %s: %w", event.Type, topic, err)
		}
	}

	p.logger.Debug("Event published", "event_id", event.ID, "event_type", event.Type)
	return nil
}

// Subscriber exposes the in-process bus; topics are event types
func (p *WatermillPublisher) Subscriber() message.Subscriber {
	return p.local
}

func (p *WatermillPublisher) Close() error {
	var errs []error
	if p.broker != nil {
		if err := p.broker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kafka publisher: %w", err))
		}
	}
	if err := p.local.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close local bus: %w", err))
	}
	return errors.Join(errs...)
}

func (p *WatermillPublisher) brokerTopic(eventType string) string {
	if p.topicPrefix == "" {
		return eventType
	}
	return p.topicPrefix + "." + eventType
}

// DecodeEvent unmarshals a bus message back into its envelope. When data is a non-nil
// pointer the payload's data field is decoded into it, otherwise Data is a generic map.
func DecodeEvent(msg *message.Message, data interface{}) (*Event, error) {
	event := Event{Data: data}
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event %s: %w", msg.UUID, err)
	}
	return &event, nil
}
