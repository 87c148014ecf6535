package coordinator

import (
	"context"
	"errors"

	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/ports"
)

// Conversations refreshes the cached conversation list.
func (c *Coordinator) Conversations(ctx context.Context) ([]chat.Conversation, error) {
	const op = "list_conversations"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	s := c.Snapshot()
	if !s.SignedIn() || s.Role().IsAdmin() {
		return nil, opErr(ErrForbidden, op, "conversations need a driver or passenger session", nil)
	}

	conversations, err := c.backend.ListConversations(ctx, s.Account.ID)
	if err != nil {
		c.log.Error(ctx, "conversations_fetch_failed", "Failed to fetch conversations", err, nil)
		return nil, opErr(ErrFetch, op, "failed to fetch conversations", err)
	}
	c.dispatch(ConversationsLoaded{Conversations: conversations})
	return conversations, nil
}

// Messages lists one conversation the session takes part in.
func (c *Coordinator) Messages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	const op = "list_messages"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.checkParticipant(ctx, op, conversationID, ErrFetch); err != nil {
		return nil, err
	}
	messages, err := c.backend.ListMessages(ctx, conversationID)
	if err != nil {
		c.log.Error(ctx, "messages_fetch_failed", "Failed to fetch messages", err,
			map[string]any{"conversation_id": conversationID})
		return nil, opErr(ErrFetch, op, "failed to fetch messages", err)
	}
	return messages, nil
}

// SendMessage appends a message to a conversation the session takes part in.
func (c *Coordinator) SendMessage(ctx context.Context, conversationID, body string) (*chat.Message, error) {
	const op = "send_message"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.checkParticipant(ctx, op, conversationID, ErrUpdate); err != nil {
		return nil, err
	}
	s := c.Snapshot()
	message, err := chat.NewMessage(conversationID, s.Account.ID, body)
	if err != nil {
		return nil, opErr(ErrUpdate, op, "invalid message", err)
	}
	saved, err := c.backend.SendMessage(ctx, message)
	if err != nil {
		c.log.Error(ctx, "message_send_failed", "Failed to send message", err,
			map[string]any{"conversation_id": conversationID})
		return nil, opErr(ErrUpdate, op, "failed to send message", err)
	}
	return saved, nil
}

// Notifications refreshes the cached notification list.
func (c *Coordinator) Notifications(ctx context.Context) ([]chat.Notification, error) {
	const op = "list_notifications"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	s := c.Snapshot()
	if !s.SignedIn() {
		return nil, opErr(ErrForbidden, op, "not signed in", nil)
	}
	notifications, err := c.backend.ListNotifications(ctx, s.Account.ID)
	if err != nil {
		c.log.Error(ctx, "notifications_fetch_failed", "Failed to fetch notifications", err, nil)
		return nil, opErr(ErrFetch, op, "failed to fetch notifications", err)
	}
	c.dispatch(NotificationsLoaded{Notifications: notifications})
	return notifications, nil
}

// MarkNotificationRead flags one of the session's notifications as read.
func (c *Coordinator) MarkNotificationRead(ctx context.Context, notificationID string) error {
	const op = "mark_notification_read"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	s := c.Snapshot()
	if !s.SignedIn() {
		return opErr(ErrForbidden, op, "not signed in", nil)
	}
	if err := c.backend.MarkNotificationRead(ctx, s.Account.ID, notificationID); err != nil {
		c.log.Error(ctx, "notification_read_failed", "Failed to mark notification read", err,
			map[string]any{"notification_id": notificationID})
		return opErr(ErrUpdate, op, "failed to mark notification read", err)
	}
	c.dispatch(NotificationRead{ID: notificationID})
	return nil
}

func (c *Coordinator) checkParticipant(ctx context.Context, op, conversationID string, kind error) error {
	s := c.Snapshot()
	if !s.SignedIn() || s.Role().IsAdmin() {
		return opErr(ErrForbidden, op, "conversations need a driver or passenger session", nil)
	}
	conversation, err := c.backend.GetConversation(ctx, conversationID)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			c.log.Error(ctx, "conversation_fetch_failed", "Failed to fetch conversation", err,
				map[string]any{"conversation_id": conversationID})
		}
		return opErr(kind, op, "conversation not available", err)
	}
	if !conversation.HasParticipant(s.Account.ID) {
		return opErr(ErrForbidden, op, "not a participant", chat.ErrNotParticipant)
	}
	return nil
}
