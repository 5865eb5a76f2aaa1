package events

import (
	"fmt"
	"time"
)

// Config represents result event publishing configuration
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Broker  string `mapstructure:"broker"` // kafka, rabbitmq

	Kafka    KafkaConfig    `mapstructure:"kafka"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

// KafkaConfig represents Kafka publisher configuration
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RabbitMQConfig represents RabbitMQ publisher configuration
type RabbitMQConfig struct {
	URL               string        `mapstructure:"url"`
	Exchange          string        `mapstructure:"exchange"`
	RoutingKey        string        `mapstructure:"routing_key"`
	Vhost             string        `mapstructure:"vhost"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// Validate validates event publishing configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Broker {
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required")
		}
	case "rabbitmq":
		if c.RabbitMQ.URL == "" {
			return fmt.Errorf("rabbitmq url is required")
		}
		if c.RabbitMQ.Exchange == "" {
			return fmt.Errorf("rabbitmq exchange is required")
		}
	default:
		return fmt.Errorf("unsupported event broker: %s", c.Broker)
	}

	return nil
}
