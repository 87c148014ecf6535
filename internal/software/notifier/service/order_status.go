package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/general/contracts"
	"ride-coordinator/internal/general/rabbitmq"
)

type notice struct {
	title      string
	toDriver   bool
	withAmount bool
}

// Statuses not listed here are acknowledged without a notification.
var notices = map[order.Status]notice{
	order.StatusAccepted:      {title: "司機已接單"},
	order.StatusPickupArrived: {title: "司機已抵達上車點"},
	order.StatusCompleted:     {title: "行程已完成", withAmount: true},
	order.StatusCancelled:     {title: "行程已取消", toDriver: true},
}

// HandleOrderStatus stores the notifications for one order status message.
// Malformed messages return an error and are dropped by the consumer; store
// failures are retryable. Each recipient is marked handled only after its
// notification is stored, so a redelivery fills in whatever is missing.
func (service *NotifierService) HandleOrderStatus(ctx context.Context, d amqp.Delivery) error {
	var msg contracts.OrderStatusMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		service.logger.Error(ctx, "mq_message_parse_failed", "Failed to parse order status message", err,
			map[string]any{"routing_key": d.RoutingKey})
		return fmt.Errorf("decode order status: %w", err)
	}
	ctx = service.logger.WithOrderID(ctx, msg.OrderID)

	status, err := order.ParseStatus(msg.Status)
	if err != nil {
		service.logger.Error(ctx, "mq_message_invalid", "Order status message carries an unknown status", err,
			map[string]any{"status": msg.Status})
		return err
	}
	n, ok := notices[status]
	if !ok {
		return nil
	}

	body := fmt.Sprintf("訂單 %s：%s", msg.OrderID, status.Label())
	if n.withAmount && msg.FareTotal > 0 {
		body += fmt.Sprintf("，車資 NT$%d", msg.FareTotal)
	}

	recipients := []string{msg.PassengerID}
	if n.toDriver && strings.TrimSpace(msg.DriverID) != "" {
		recipients = append(recipients, msg.DriverID)
	}
	for _, accountID := range recipients {
		key := dedupeKey(msg, accountID)
		if service.delivered(ctx, key) {
			service.logger.Info(ctx, "notification_duplicate_skipped", "Notification already stored for this message",
				map[string]any{"correlation_id": msg.CorrelationID, "account_id": accountID})
			continue
		}
		note, err := chat.NewNotification(accountID, n.title, body, msg.OrderID)
		if err != nil {
			service.logger.Error(ctx, "mq_message_invalid", "Cannot build notification", err,
				map[string]any{"account_id": accountID})
			return err
		}
		created, err := service.store.CreateNotification(ctx, note)
		if err != nil {
			service.logger.Error(ctx, "notification_create_failed", "Failed to store notification", err,
				map[string]any{"account_id": accountID})
			return rabbitmq.Retryable(err)
		}
		service.markDelivered(ctx, key, status)
		service.logger.Info(ctx, "notification_created", "Notification stored", map[string]any{
			"account_id":      accountID,
			"notification_id": created.ID,
			"status":          status,
		})
	}
	return nil
}

// dedupeKey is empty for messages without a correlation id.
func dedupeKey(msg contracts.OrderStatusMessage, accountID string) string {
	if msg.CorrelationID == "" {
		return ""
	}
	return "notified:" + msg.CorrelationID + ":" + accountID
}

// delivered reports whether key was recorded by an earlier delivery. Lookup
// failures count as not delivered.
func (service *NotifierService) delivered(ctx context.Context, key string) bool {
	if service.dedupe == nil || key == "" {
		return false
	}
	n, err := service.dedupe.Exists(ctx, key).Result()
	if err != nil {
		service.logger.Error(ctx, "dedupe_check_failed", "Dedupe lookup failed; handling message", err,
			map[string]any{"key": key})
		return false
	}
	return n > 0
}

// markDelivered records key once the notification is stored.
func (service *NotifierService) markDelivered(ctx context.Context, key string, status order.Status) {
	if service.dedupe == nil || key == "" {
		return
	}
	if err := service.dedupe.Set(ctx, key, string(status), dedupeTTL).Err(); err != nil {
		service.logger.Error(ctx, "dedupe_mark_failed", "Failed to record handled message", err,
			map[string]any{"key": key})
	}
}
