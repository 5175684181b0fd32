package consumer

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"

	kafka "github.com/vogiaan1904/transit-reservation/internal/delivery/kafka"
	"github.com/vogiaan1904/transit-reservation/internal/service"
)

func (c *Consumer) handlePaymentConfirmed(ctx context.Context, message *sarama.ConsumerMessage) error {
	var e kafka.PaymentConfirmedEvent
	if err := json.Unmarshal(message.Value, &e); err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlePaymentConfirmed: %v", err)
		return err
	}

	if e.BookingID != "" {
		_, err := c.rtSvc.ConfirmBooking(ctx, service.ConfirmBookingInput{
			BookingID:      e.BookingID,
			IdempotencyKey: e.IdempotencyKey,
			Amount:         e.Amount,
			PaymentRef:     e.PaymentRef,
		})
		if err != nil {
			c.l.Errorf(ctx, "delivery.kafka.consumer.handlePaymentConfirmed: %v", err)
			return err
		}
		return nil
	}

	_, err := c.pSvc.ConfirmPayment(ctx, service.ConfirmPaymentInput{
		HoldID:         e.HoldID,
		IdempotencyKey: e.IdempotencyKey,
		Amount:         e.Amount,
		PaymentRef:     e.PaymentRef,
	})
	if err != nil {
		c.l.Errorf(ctx, "delivery.kafka.consumer.handlePaymentConfirmed: %v", err)
		return err
	}

	c.l.Infof(ctx, "Payment confirmed for hold %s", e.HoldID)
	return nil
}
