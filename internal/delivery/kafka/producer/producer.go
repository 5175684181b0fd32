package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	kafka "github.com/vogiaan1904/transit-reservation/internal/delivery/kafka"
	"github.com/vogiaan1904/transit-reservation/pkg/logger"
)

type Producer interface {
	PublishHoldCreated(ctx context.Context, event kafka.HoldCreatedEvent) error
	PublishHoldExpired(ctx context.Context, event kafka.HoldExpiredEvent) error
	PublishTicketIssued(ctx context.Context, event kafka.TicketIssuedEvent) error
	PublishTicketTransferred(ctx context.Context, event kafka.TicketTransferredEvent) error
	PublishTicketCancelled(ctx context.Context, event kafka.TicketCancelledEvent) error
	Close() error
}

type implProducer struct {
	l    logger.Logger
	prod sarama.SyncProducer
}

func NewProducer(prod sarama.SyncProducer, l logger.Logger) Producer {
	return &implProducer{
		l:    l,
		prod: prod,
	}
}

func (p *implProducer) publish(ctx context.Context, topic, key string, event any) error {
	val, err := json.Marshal(event)
	if err != nil {
		p.l.Errorf(ctx, "delivery.kafka.producer.publish: %v", err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key), // Partition by trip_id for ordering
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(time.Now().Format(time.RFC3339)),
			},
		},
	}

	_, _, err = p.prod.SendMessage(msg)
	return err
}

func (p *implProducer) PublishHoldCreated(ctx context.Context, event kafka.HoldCreatedEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicHoldCreated, event.TripID, event)
}

func (p *implProducer) PublishHoldExpired(ctx context.Context, event kafka.HoldExpiredEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicHoldExpired, event.TripID, event)
}

func (p *implProducer) PublishTicketIssued(ctx context.Context, event kafka.TicketIssuedEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicTicketIssued, event.TripID, event)
}

func (p *implProducer) PublishTicketTransferred(ctx context.Context, event kafka.TicketTransferredEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicTicketTransferred, event.TripID, event)
}

func (p *implProducer) PublishTicketCancelled(ctx context.Context, event kafka.TicketCancelledEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, kafka.TopicTicketCancelled, event.TripID, event)
}

func (p *implProducer) Close() error {
	return p.prod.Close()
}

// noopProducer stands in when Kafka is disabled.
type noopProducer struct{}

func NewNoopProducer() Producer {
	return noopProducer{}
}

func (noopProducer) PublishHoldCreated(context.Context, kafka.HoldCreatedEvent) error { return nil }
func (noopProducer) PublishHoldExpired(context.Context, kafka.HoldExpiredEvent) error { return nil }
func (noopProducer) PublishTicketIssued(context.Context, kafka.TicketIssuedEvent) error {
	return nil
}
func (noopProducer) PublishTicketTransferred(context.Context, kafka.TicketTransferredEvent) error {
	return nil
}
func (noopProducer) PublishTicketCancelled(context.Context, kafka.TicketCancelledEvent) error {
	return nil
}
func (noopProducer) Close() error { return nil }
