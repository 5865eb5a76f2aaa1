package events

import (
	"context"
	"fmt"
	"time"

	"nanohub/internal/types"

	"go.uber.org/zap"
)

// Event is the record published when a dispatched command reaches a
// terminal state
type Event struct {
	CommandUUID string    `json:"command_uuid"`
	Device      string    `json:"device"`
	RequestType string    `json:"request_type,omitempty"`
	Status      string    `json:"status,omitempty"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher delivers command completion events to a broker
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// NewPublisher creates a publisher for the configured broker. A
// disabled config yields a no-op publisher.
func NewPublisher(cfg *Config, logger *zap.Logger) (Publisher, error) {
	if !cfg.Enabled {
		return &noopPublisher{}, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Broker {
	case "kafka":
		return NewKafkaPublisher(&cfg.Kafka, logger)
	case "rabbitmq":
		return NewRabbitMQPublisher(&cfg.RabbitMQ, logger)
	default:
		return nil, fmt.Errorf("unsupported event broker: %s", cfg.Broker)
	}
}

// EventFromRecord builds a completion event from an audit record
func EventFromRecord(record *types.CommandRecord) *Event {
	return &Event{
		CommandUUID: record.CommandUUID,
		Device:      record.Device,
		RequestType: record.RequestType,
		Status:      record.Status,
		Success:     record.Success,
		Error:       record.Error,
		Timestamp:   time.Now(),
	}
}

// noopPublisher drops events when publishing is disabled
type noopPublisher struct{}

func (p *noopPublisher) Publish(context.Context, *Event) error { return nil }
func (p *noopPublisher) Close() error                          { return nil }
