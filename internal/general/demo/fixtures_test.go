package demo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-coordinator/internal/domain/order"
)

func TestBuildIsConsistent(t *testing.T) {
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	f, err := Build(now)
	require.NoError(t, err)

	require.Len(t, f.Accounts, 4)
	for _, a := range f.Accounts {
		assert.NotEmpty(t, a.ID)
		assert.NotEmpty(t, a.PasswordHash)
	}
	require.NoError(t, f.Accounts[0].Authenticate("123456"))

	byID := map[string]*order.Order{}
	for _, o := range f.Orders {
		byID[o.ID] = o
		assert.Equal(t, o.Fare.Base+o.Fare.Distance+o.Fare.Time, o.Fare.Total, o.ID)
	}
	assert.Equal(t, 350, byID["RD001"].Fare.Total)
	assert.Equal(t, order.StatusPending, byID["RD001"].Status)
	assert.True(t, byID["RD001"].RequestedAt.Before(byID["RD002"].RequestedAt))
	assert.Equal(t, order.StatusCompleted, byID["RD000"].Status)

	require.Len(t, f.Messages, 2)
	assert.True(t, f.Conversations[0].HasParticipant(f.Messages[0].SenderID))
	assert.True(t, f.Messages[0].SentAt.Before(f.Messages[1].SentAt))
	assert.Equal(t, "RD000", f.Notifications[0].OrderID)
}
