package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/ports"
)

const selectConversation = `
SELECT c.id, COALESCE(c.order_id, ''), c.driver_id, c.passenger_id, COALESCE(c.last_message, ''), c.updated_at,
       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id AND m.read = 0 AND m.sender_id != ?)
FROM conversations c`

// ListConversations returns the conversations accountID takes part in,
// most recently active first, with unread counts from their side.
func (s *Store) ListConversations(ctx context.Context, accountID string) ([]chat.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, selectConversation+`
		WHERE c.driver_id = ? OR c.passenger_id = ?
		ORDER BY c.updated_at DESC`, accountID, accountID, accountID)
	if err != nil {
		return nil, err
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

func (s *Store) GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	c, err := scanConversation(s.db.QueryRowContext(ctx, selectConversation+` WHERE c.id = ?`, "", conversationID))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// CreateConversation opens a conversation between the two parties of an order.
func (s *Store) CreateConversation(ctx context.Context, c *chat.Conversation) error {
	if c.ID == "" {
		c.ID = newID("CV")
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, order_id, driver_id, passenger_id, last_message, updated_at)
		VALUES (?, NULLIF(?, ''), ?, ?, NULLIF(?, ''), ?)`,
		c.ID, c.OrderID, c.DriverID, c.PassengerID, c.LastMessage, formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, body, read, sent_at
		FROM messages WHERE conversation_id = ?
		ORDER BY sent_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.Message
	for rows.Next() {
		var (
			m      chat.Message
			sentAt string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.Read, &sentAt); err != nil {
			return nil, err
		}
		if m.SentAt, err = parseTime(sentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SendMessage appends a message and bumps the conversation preview.
func (s *Store) SendMessage(ctx context.Context, message *chat.Message) (*chat.Message, error) {
	out := *message
	out.ID = newID("MS")

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE conversations SET last_message = ?, updated_at = ? WHERE id = ?`,
			out.Body, formatTime(out.SentAt), out.ConversationID)
		if err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ports.ErrNotFound
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, sender_id, body, read, sent_at)
			VALUES (?, ?, ?, ?, 0, ?)`,
			out.ID, out.ConversationID, out.SenderID, out.Body, formatTime(out.SentAt))
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListNotifications(ctx context.Context, accountID string) ([]chat.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, title, body, COALESCE(order_id, ''), read, created_at
		FROM notifications WHERE account_id = ?
		ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.Notification
	for rows.Next() {
		var (
			n         chat.Notification
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Title, &n.Body, &n.OrderID, &n.Read, &createdAt); err != nil {
			return nil, err
		}
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CreateNotification(ctx context.Context, notification *chat.Notification) (*chat.Notification, error) {
	out := *notification
	out.ID = newID("NT")

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, account_id, title, body, order_id, read, created_at)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), 0, ?)`,
		out.ID, out.AccountID, out.Title, out.Body, out.OrderID, formatTime(out.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, accountID, notificationID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ? AND account_id = ?`,
		notificationID, accountID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func scanConversation(row rowScanner) (*chat.Conversation, error) {
	var (
		c         chat.Conversation
		updatedAt string
	)
	if err := row.Scan(&c.ID, &c.OrderID, &c.DriverID, &c.PassengerID, &c.LastMessage, &updatedAt, &c.Unread); err != nil {
		return nil, err
	}
	t, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	c.UpdatedAt = t
	return &c, nil
}
