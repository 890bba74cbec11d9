package kafka

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
)

const (
	DriverKafkaGo = "kafka-go"
	DriverSarama  = "sarama"
)

// Message is what the broadcaster hands to a publisher.
type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Publisher delivers one message synchronously; a nil error means the
// broker acknowledged it.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

type Config struct {
	Driver   string
	Brokers  []string
	Topic    string
	ClientID string
}

// New builds the publisher for cfg.Driver.
func New(cfg Config) (Publisher, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka: brokers and topic are required")
	}
	switch cfg.Driver {
	case DriverKafkaGo, "":
		return NewProducer(cfg.Brokers, cfg.Topic), nil
	case DriverSarama:
		return NewSaramaPublisher(cfg.Brokers, cfg.Topic, cfg.ClientID)
	default:
		return nil, errors.Newf("kafka: unknown driver %q", cfg.Driver)
	}
}

// headerKeys returns the header names sorted, so brokers see a stable
// header order.
func headerKeys(h map[string]string) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
