package contracts

// Exchanges
const (
	ExchangeRideTopic   = "ride_topic"
	ExchangeDriverTopic = "driver_topic"
)

// Queues
const (
	QueueOrderStatus  = "order_status"
	QueueDriverStatus = "driver_status"
)

// Routing patterns
const (
	RouteOrderStatusPrefix  = "order.status."  // {status}
	RouteDriverStatusPrefix = "driver.status." // {driver_id}
)

// WebSocket frame types
const (
	WSTypeAuth            = "auth"
	WSTypeSessionSnapshot = "session_snapshot"
	WSTypeError           = "error"
)
