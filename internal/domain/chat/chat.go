package chat

import (
	"errors"
	"strings"
	"time"
)

// Conversation links one driver and one passenger, usually around an order.
type Conversation struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id,omitempty"`
	DriverID    string    `json:"driver_id"`
	PassengerID string    `json:"passenger_id"`
	LastMessage string    `json:"last_message,omitempty"`
	Unread      int       `json:"unread"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Message is an append-only chat line.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	Read           bool      `json:"read"`
	SentAt         time.Time `json:"sent_at"`
}

// Notification is a one-way notice addressed to an account.
type Notification struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	OrderID   string    `json:"order_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

const maxMessageLen = 1000

var (
	ErrConversationRequired = errors.New("conversation id is required")
	ErrSenderRequired       = errors.New("sender id is required")
	ErrEmptyMessage         = errors.New("message body cannot be empty")
	ErrMessageTooLong       = errors.New("message body is too long")
	ErrNotParticipant       = errors.New("account is not part of the conversation")
	ErrAccountRequired      = errors.New("account id is required")
	ErrTitleRequired        = errors.New("notification title is required")
)

// NewMessage validates and trims a new chat line.
func NewMessage(conversationID, senderID, body string) (*Message, error) {
	if conversationID = strings.TrimSpace(conversationID); conversationID == "" {
		return nil, ErrConversationRequired
	}
	if senderID = strings.TrimSpace(senderID); senderID == "" {
		return nil, ErrSenderRequired
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	if len([]rune(body)) > maxMessageLen {
		return nil, ErrMessageTooLong
	}
	return &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		SentAt:         time.Now().UTC(),
	}, nil
}

// NewNotification builds an unread notification.
func NewNotification(accountID, title, body, orderID string) (*Notification, error) {
	if accountID = strings.TrimSpace(accountID); accountID == "" {
		return nil, ErrAccountRequired
	}
	if title = strings.TrimSpace(title); title == "" {
		return nil, ErrTitleRequired
	}
	return &Notification{
		AccountID: accountID,
		Title:     title,
		Body:      strings.TrimSpace(body),
		OrderID:   orderID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// HasParticipant reports whether accountID is the driver or the passenger.
func (conversation Conversation) HasParticipant(accountID string) bool {
	return accountID != "" && (conversation.DriverID == accountID || conversation.PassengerID == accountID)
}
