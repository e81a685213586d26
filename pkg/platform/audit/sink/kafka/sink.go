// Package kafka forwards audit events to a Kafka topic as JSON records keyed by subject.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "rekam/pkg/platform/audit"
	"rekam/pkg/platform/circuit"
)

// Producer is the subset of *kgo.Client the sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// ErrCircuitOpen is returned without producing while the broker is considered down.
var ErrCircuitOpen = errors.New("kafka audit sink circuit open")

// Sink publishes audit events to topic.
type Sink struct {
	producer Producer
	topic    string
	breaker  *circuit.Breaker
}

type Option func(*Sink)

// WithBreaker stops producing after repeated failures until a probe succeeds.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Sink) {
		s.breaker = b
	}
}

func NewSink(producer Producer, topic string, opts ...Option) *Sink {
	s := &Sink{producer: producer, topic: topic}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewClient builds a franz-go client for brokers.
func NewClient(brokers []string, topic string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ClientID("rekam-audit"),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

func (s *Sink) Publish(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Subject),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "category", Value: []byte(event.Category)},
		},
	}
	if s.breaker != nil && !s.breaker.Allow() {
		return ErrCircuitOpen
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		if s.breaker != nil {
			s.breaker.RecordFailure()
		}
		return fmt.Errorf("produce audit event: %w", err)
	}
	if s.breaker != nil {
		s.breaker.RecordSuccess()
	}
	return nil
}
