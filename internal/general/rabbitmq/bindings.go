package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"ride-coordinator/internal/general/contracts"
)

type binding struct {
	queue, exchange, key string
}

var (
	exchanges = []string{contracts.ExchangeRideTopic, contracts.ExchangeDriverTopic}

	bindings = []binding{
		{contracts.QueueOrderStatus, contracts.ExchangeRideTopic, contracts.RouteOrderStatusPrefix + "*"},
		{contracts.QueueDriverStatus, contracts.ExchangeDriverTopic, contracts.RouteDriverStatusPrefix + "*"},
	}
)

// declareTopology makes sure both topic exchanges, their durable queues and
// the bindings between them exist. Safe to repeat after every reconnect.
func declareTopology(ch *amqp.Channel) error {
	for _, name := range exchanges {
		if err := ch.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}

	for _, b := range bindings {
		if _, err := ch.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.queue, err)
		}
		if err := ch.QueueBind(b.queue, b.key, b.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}
