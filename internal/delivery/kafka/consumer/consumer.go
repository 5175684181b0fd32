package consumer

import (
	"context"
	"sync"

	"github.com/IBM/sarama"

	kafka "github.com/vogiaan1904/transit-reservation/internal/delivery/kafka"
	"github.com/vogiaan1904/transit-reservation/internal/service"
	"github.com/vogiaan1904/transit-reservation/pkg/logger"
)

// Consumer receives payment-gateway webhook events. The gateway may
// deliver the same confirmation more than once; the coordinator's
// idempotency handling makes the replay return the original outcome.
type Consumer struct {
	consGr sarama.ConsumerGroup
	pSvc   service.PaymentService
	rtSvc  service.RoundTripService
	l      logger.Logger
	wg     sync.WaitGroup
}

func NewConsumer(
	consGr sarama.ConsumerGroup,
	pSvc service.PaymentService,
	rtSvc service.RoundTripService,
	l logger.Logger,
) *Consumer {
	return &Consumer{
		consGr: consGr,
		pSvc:   pSvc,
		rtSvc:  rtSvc,
		l:      l,
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	topics := []string{kafka.TopicPaymentConfirmed}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if err := c.consGr.Consume(ctx, topics, c); err != nil {
				c.l.Errorf(ctx, "delivery.kafka.consumer.Start: %v", err)
			}

			if ctx.Err() != nil {
				c.l.Infof(ctx, "delivery.kafka.consumer.Start: %v", ctx.Err())
				return
			}
		}
	}()

	// Handle errors
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consGr.Errors() {
			c.l.Errorf(ctx, "delivery.kafka.consumer.Start: %v", err)
		}
	}()

	c.l.Infof(ctx, "Consumer is consuming topics: %v", topics)
	return nil
}

func (c *Consumer) Close() error {
	if err := c.consGr.Close(); err != nil {
		return err
	}

	c.wg.Wait()
	return nil
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			// Business failures (expired hold, amount mismatch) are
			// terminal for the message; retrying the webhook cannot fix
			// them, so the offset is committed either way.
			if err := c.handlePaymentConfirmed(session.Context(), msg); err != nil {
				c.l.Errorf(session.Context(), "delivery.kafka.consumer.ConsumeClaim: %v", err)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
