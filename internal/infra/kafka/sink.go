// Package kafka forwards domain events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Spok95/tienda-pos/internal/events"
)

// Writer is the subset of *kafka.Writer the sink uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Sink struct {
	w Writer
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

func NewSink(w Writer) *Sink {
	return &Sink{w: w}
}

func (s *Sink) Name() string { return "kafka" }

func (s *Sink) Deliver(ctx context.Context, e events.Event) error {
	msg, err := Message(e)
	if err != nil {
		return err
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s: %w", e.Type, err)
	}
	return nil
}

func (s *Sink) Close() error { return s.w.Close() }

// Message keys by store so one store's events stay on one partition, in order.
func Message(e events.Event) (kafka.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(e.StoreID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(e.ID.String())},
			{Key: "event-type", Value: []byte(e.Type)},
			{Key: "occurred-at", Value: []byte(e.OccurredAt.Format(time.RFC3339Nano))},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: e.OccurredAt,
	}, nil
}
