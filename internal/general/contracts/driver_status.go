package contracts

import "time"

// DriverStatusMessage is published by the coordinator service.
// Routing key: "driver.status.{driver_id}" on ExchangeDriverTopic.
type DriverStatusMessage struct {
	DriverID  string    `json:"driver_id"`
	Status    string    `json:"status"` // offline|online|busy
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
	Envelope
}
