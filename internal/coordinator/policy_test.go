package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyRevert, p)

	p, err = ParsePolicy(" RETRY ")
	require.NoError(t, err)
	assert.Equal(t, PolicyRetry, p)

	_, err = ParsePolicy("optimistic")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errNetwork
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry(ctx, 10, time.Hour, func(context.Context) error {
		calls++
		cancel()
		return errNetwork
	})
	assert.ErrorIs(t, err, errNetwork)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestOpErrorMatchesKindAndCause(t *testing.T) {
	err := opErr(ErrAccept, "accept_order", "order already taken", errNetwork)

	assert.ErrorIs(t, err, ErrAccept)
	assert.ErrorIs(t, err, errNetwork)
	assert.NotErrorIs(t, err, ErrStatus)
	assert.Equal(t, "accept_order: order already taken: dial tcp: connection refused", err.Error())

	var op *OpError
	require.True(t, errors.As(err, &op))
	assert.Equal(t, "accept_order", op.Op)
	assert.Equal(t, "AcceptError", op.KindName())

	assert.Equal(t, "login: authentication failed", opErr(ErrAuth, "login", "", nil).Error())
}
