package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	m, err := NewMessage("c-1", "d-1", "  我到了 ")
	require.NoError(t, err)
	assert.Equal(t, "我到了", m.Body)
	assert.False(t, m.Read)

	_, err = NewMessage("", "d-1", "x")
	assert.ErrorIs(t, err, ErrConversationRequired)
	_, err = NewMessage("c-1", "", "x")
	assert.ErrorIs(t, err, ErrSenderRequired)
	_, err = NewMessage("c-1", "d-1", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = NewMessage("c-1", "d-1", strings.Repeat("好", maxMessageLen+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)
}

func TestNewNotification(t *testing.T) {
	n, err := NewNotification("p-1", "司機已接單", "", "RD001")
	require.NoError(t, err)
	assert.Equal(t, "RD001", n.OrderID)

	_, err = NewNotification("p-1", " ", "", "")
	assert.ErrorIs(t, err, ErrTitleRequired)
	_, err = NewNotification("", "t", "", "")
	assert.ErrorIs(t, err, ErrAccountRequired)
}

func TestHasParticipant(t *testing.T) {
	c := Conversation{DriverID: "d-1", PassengerID: "p-1"}
	assert.True(t, c.HasParticipant("d-1"))
	assert.True(t, c.HasParticipant("p-1"))
	assert.False(t, c.HasParticipant("x"))
	assert.False(t, c.HasParticipant(""))
}
