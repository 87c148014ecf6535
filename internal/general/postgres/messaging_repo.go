package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/ports"
)

// MessagingRepo persists conversations, messages and notifications.
type MessagingRepo struct{}

func NewMessagingRepo() ports.MessagingRepository {
	return &MessagingRepo{}
}

// unread counts messages in the conversation not sent by $1.
const selectConversation = `
	SELECT c.id, COALESCE(c.order_id, ''), c.driver_id, c.passenger_id, COALESCE(c.last_message, ''), c.updated_at,
	       (SELECT COUNT(*)::int FROM messages m WHERE m.conversation_id = c.id AND NOT m.read AND m.sender_id <> $1)
	FROM conversations c`

// ListConversations returns the account's conversations, most recent first.
func (repo *MessagingRepo) ListConversations(ctx context.Context, accountID string) ([]chat.Conversation, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, selectConversation+`
		WHERE c.driver_id = $1 OR c.passenger_id = $1
		ORDER BY c.updated_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var out []chat.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetConversation fetches one conversation by id.
func (repo *MessagingRepo) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return scanConversation(tx.QueryRow(ctx, selectConversation+` WHERE c.id = $2`, "", id))
}

// CreateConversation inserts a conversation, assigning its ID when empty.
func (repo *MessagingRepo) CreateConversation(ctx context.Context, c *chat.Conversation) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = newID("CV")
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO conversations (id, order_id, driver_id, passenger_id, last_message, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6)`,
		c.ID, c.OrderID, c.DriverID, c.PassengerID, c.LastMessage, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// ListMessages returns the latest limit messages in chronological order.
func (repo *MessagingRepo) ListMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, conversation_id, sender_id, body, read, sent_at
		FROM (
			SELECT * FROM messages WHERE conversation_id = $1
			ORDER BY sent_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY sent_at ASC, id ASC`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []chat.Message
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.Read, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateMessage inserts the message and bumps the conversation preview.
func (repo *MessagingRepo) CreateMessage(ctx context.Context, m *chat.Message) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = newID("MS")
	}

	tag, err := tx.Exec(ctx, `UPDATE conversations SET last_message = $2, updated_at = $3 WHERE id = $1`,
		m.ConversationID, m.Body, m.SentAt)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, body, read, sent_at)
		VALUES ($1, $2, $3, $4, false, $5)`,
		m.ID, m.ConversationID, m.SenderID, m.Body, m.SentAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListNotifications returns the account's latest notifications, newest first.
func (repo *MessagingRepo) ListNotifications(ctx context.Context, accountID string, limit int) ([]chat.Notification, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, account_id, title, body, COALESCE(order_id, ''), read, created_at
		FROM notifications
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []chat.Notification
	for rows.Next() {
		var n chat.Notification
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Title, &n.Body, &n.OrderID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CreateNotification inserts a notification, assigning its ID when empty.
func (repo *MessagingRepo) CreateNotification(ctx context.Context, n *chat.Notification) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	if n.ID == "" {
		n.ID = newID("NT")
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO notifications (id, account_id, title, body, order_id, read, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), false, $6)`,
		n.ID, n.AccountID, n.Title, n.Body, n.OrderID, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// MarkNotificationRead flags a notification of accountID as read. It
// reports whether such a notification exists.
func (repo *MessagingRepo) MarkNotificationRead(ctx context.Context, accountID, id string) (bool, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, `UPDATE notifications SET read = true WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanConversation(row pgx.Row) (*chat.Conversation, error) {
	var c chat.Conversation
	err := row.Scan(&c.ID, &c.OrderID, &c.DriverID, &c.PassengerID, &c.LastMessage, &c.UpdatedAt, &c.Unread)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return &c, nil
}
