package events

import (
	"context"
	"testing"
	"time"

	"nanohub/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"kafka valid", Config{Enabled: true, Broker: "kafka",
			Kafka: KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "commands"}}, false},
		{"kafka missing brokers", Config{Enabled: true, Broker: "kafka",
			Kafka: KafkaConfig{Topic: "commands"}}, true},
		{"kafka missing topic", Config{Enabled: true, Broker: "kafka",
			Kafka: KafkaConfig{Brokers: []string{"localhost:9092"}}}, true},
		{"rabbitmq valid", Config{Enabled: true, Broker: "rabbitmq",
			RabbitMQ: RabbitMQConfig{URL: "amqp://localhost", Exchange: "commands"}}, false},
		{"rabbitmq missing url", Config{Enabled: true, Broker: "rabbitmq",
			RabbitMQ: RabbitMQConfig{Exchange: "commands"}}, true},
		{"unsupported broker", Config{Enabled: true, Broker: "zeromq"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewPublisherDisabled(t *testing.T) {
	p, err := NewPublisher(&Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NoError(t, p.Publish(context.Background(), &Event{CommandUUID: "uuid-1"}))
	assert.NoError(t, p.Close())
}

func TestEventFromRecord(t *testing.T) {
	record := &types.CommandRecord{
		CommandUUID: "uuid-1",
		Device:      "ABC123",
		RequestType: "DeviceInformation",
		Status:      types.StatusAcknowledged,
		Success:     true,
	}

	event := EventFromRecord(record)
	assert.Equal(t, "uuid-1", event.CommandUUID)
	assert.Equal(t, "ABC123", event.Device)
	assert.True(t, event.Success)
	assert.WithinDuration(t, time.Now(), event.Timestamp, time.Minute)
}
