package contracts

import "time"

// OrderStatusMessage is published whenever an order changes status.
// Routing key: "order.status.{status}" on ExchangeRideTopic.
type OrderStatusMessage struct {
	OrderID     string    `json:"order_id"`
	PassengerID string    `json:"passenger_id"`
	DriverID    string    `json:"driver_id,omitempty"`
	Status      string    `json:"status"` // pending|accepted|pickup_going|...|completed|cancelled
	Label       string    `json:"label"`
	FareTotal   int       `json:"fare_total"`
	Timestamp   time.Time `json:"timestamp"`
	Envelope
}
