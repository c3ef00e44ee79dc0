package broker

import (
	"fmt"
	"log"
	"os"
	"time"

	"go-mini-commerce/internal/event"

	amqp "github.com/rabbitmq/amqp091-go"
)

// URLFromEnv builds the broker URL from RABBITMQ_URL or its parts.
func URLFromEnv() string {
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		return url
	}
	host := os.Getenv("RABBITMQ_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("RABBITMQ_PORT")
	if port == "" {
		port = "5672"
	}
	user := os.Getenv("RABBITMQ_USER")
	if user == "" {
		user = "guest"
	}
	pass := os.Getenv("RABBITMQ_PASS")
	if pass == "" {
		pass = "guest"
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", user, pass, host, port)
}

// SetupConn handles the connection and exchange declarations.
func SetupConn(url string) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	var err error

	// Simple retry logic for container startup
	for i := 0; i < 10; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.Printf("Failed to connect to RabbitMQ (attempt %d): %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	for _, name := range []string{event.ExchangeOrderEvents, event.ExchangeStockEvents} {
		err = ch.ExchangeDeclare(
			name,    // name
			"topic", // type
			true,    // durable
			false,   // auto-deleted
			false,   // internal
			false,   // no-wait
			nil,     // arguments
		)
		if err != nil {
			return nil, nil, fmt.Errorf("could not declare exchange %s: %w", name, err)
		}
	}

	return conn, ch, nil
}

// DeclareConsumerQueue declares a durable queue bound to the given exchange
// and routing keys, plus its dead-letter exchange and queue ("<name>.dlx" /
// "<name>.dead"). Messages rejected by the consumer end up there.
func DeclareConsumerQueue(ch *amqp.Channel, name, exchange string, keys ...string) error {
	dlx := name + ".dlx"
	if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("could not declare dead-letter exchange: %w", err)
	}
	dlq, err := ch.QueueDeclare(name+".dead", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("could not declare dead-letter queue: %w", err)
	}
	if err := ch.QueueBind(dlq.Name, "", dlx, false, nil); err != nil {
		return fmt.Errorf("could not bind dead-letter queue: %w", err)
	}

	q, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-dead-letter-exchange": dlx},
	)
	if err != nil {
		return fmt.Errorf("could not declare queue %s: %w", name, err)
	}
	for _, key := range keys {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return fmt.Errorf("could not bind queue %s to %s: %w", name, key, err)
		}
	}
	return nil
}
