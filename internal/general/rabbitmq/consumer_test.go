package rabbitmq

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryableMarksAndUnwraps(t *testing.T) {
	base := errors.New("db blip")

	err := fmt.Errorf("store notification: %w", Retryable(base))
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "store notification: db blip", err.Error())

	assert.False(t, IsRetryable(base))
	assert.NoError(t, Retryable(nil))
}

func TestRequeueOnFailure(t *testing.T) {
	transient := Retryable(errors.New("db blip"))
	poison := errors.New("decode order status: unexpected EOF")

	assert.True(t, requeueOnFailure(transient, false))
	assert.False(t, requeueOnFailure(transient, true))
	assert.False(t, requeueOnFailure(poison, false))
	assert.False(t, requeueOnFailure(poison, true))
}
