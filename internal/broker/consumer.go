package broker

import (
	"context"
	"errors"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrReject marks a message as not processable (e.g. malformed payload).
// Wrapped errors send the delivery straight to the dead-letter exchange.
var ErrReject = errors.New("broker: message rejected")

// HandlerFunc processes one delivery body. Returning nil acks the message.
// Returning an error wrapping ErrReject dead-letters it immediately; any
// other error requeues it once, after which it is dead-lettered too.
type HandlerFunc func(ctx context.Context, body []byte) error

// Consume reads from queue with prefetch 1 and manual acks, so messages are
// handled one at a time and same-order events cannot race or reorder. It
// blocks until ctx is cancelled or the channel closes.
func Consume(ctx context.Context, ch *amqp.Channel, queue, consumerTag string, handler HandlerFunc) error {
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("could not set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		queue,       // queue
		consumerTag, // consumer tag
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("could not start consume on %s: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			handleDelivery(ctx, queue, d, handler)
		}
	}
}

func handleDelivery(ctx context.Context, queue string, d amqp.Delivery, handler HandlerFunc) {
	err := handler(ctx, d.Body)
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			log.Printf("%s: failed to ack delivery: %v", queue, ackErr)
		}
	case errors.Is(err, ErrReject):
		log.Printf("%s: rejecting message: %v", queue, err)
		if nackErr := d.Reject(false); nackErr != nil {
			log.Printf("%s: failed to reject delivery: %v", queue, nackErr)
		}
	case d.Redelivered:
		// Second failure: stop retrying, hand it to the dead-letter queue.
		log.Printf("%s: handler failed on redelivery, dead-lettering: %v", queue, err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Printf("%s: failed to nack delivery: %v", queue, nackErr)
		}
	default:
		log.Printf("%s: handler failed, requeueing once: %v", queue, err)
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Printf("%s: failed to nack delivery: %v", queue, nackErr)
		}
	}
}
