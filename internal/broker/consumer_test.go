package broker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

// fakeAcknowledger records which settlement path a delivery took.
type fakeAcknowledger struct {
	acked    bool
	rejected bool
	nacked   bool
	requeued bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.rejected = true
	f.requeued = requeue
	return nil
}

func delivery(redelivered bool) (amqp.Delivery, *fakeAcknowledger) {
	ack := &fakeAcknowledger{}
	return amqp.Delivery{Acknowledger: ack, Redelivered: redelivered, Body: []byte("{}")}, ack
}

func TestHandleDeliveryAck(t *testing.T) {
	d, ack := delivery(false)
	handleDelivery(context.Background(), "q", d, func(ctx context.Context, body []byte) error {
		return nil
	})
	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
}

func TestHandleDeliveryRequeueFirstFailure(t *testing.T) {
	d, ack := delivery(false)
	handleDelivery(context.Background(), "q", d, func(ctx context.Context, body []byte) error {
		return errors.New("transient")
	})
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeued, "first failure goes back on the queue")
}

func TestHandleDeliveryDeadLetterOnRedelivery(t *testing.T) {
	d, ack := delivery(true)
	handleDelivery(context.Background(), "q", d, func(ctx context.Context, body []byte) error {
		return errors.New("still failing")
	})
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeued, "second failure must dead-letter")
}

func TestHandleDeliveryRejectMalformed(t *testing.T) {
	d, ack := delivery(false)
	handleDelivery(context.Background(), "q", d, func(ctx context.Context, body []byte) error {
		return fmt.Errorf("%w: bad payload", ErrReject)
	})
	assert.True(t, ack.rejected)
	assert.False(t, ack.requeued, "malformed messages never requeue")
	assert.False(t, ack.acked)
}
