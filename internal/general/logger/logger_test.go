package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var out []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e), line)
		out = append(out, e)
	}
	return out
}

func TestInfoCarriesContextIDs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("coordinator-service", &buf)

	ctx := log.WithRequestID(context.Background(), "req-1")
	ctx = log.WithOrderID(ctx, "RD001")
	log.Info(ctx, "order_accepted", " accepted ", map[string]any{"driver_id": "d-1"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "INFO", e.Level)
	assert.Equal(t, "coordinator-service", e.Service)
	assert.Equal(t, "order_accepted", e.Action)
	assert.Equal(t, "accepted", e.Message)
	assert.Equal(t, "req-1", e.RequestID)
	assert.Equal(t, "RD001", e.OrderID)
	assert.Nil(t, e.Error)
}

func TestErrorAttachesStack(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("", &buf)

	log.Error(context.Background(), "", "boom", errors.New("db down"), nil)
	log.Error(context.Background(), "nil_error", "no cause", nil, nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "unknown-service", entries[0].Service)
	assert.Equal(t, "unspecified", entries[0].Action)
	require.NotNil(t, entries[0].Error)
	assert.Equal(t, "db down", entries[0].Error.Msg)
	assert.NotEmpty(t, entries[0].Error.Stack)
	assert.Equal(t, "unknown error", entries[1].Error.Msg)
}

func TestUnmarshalableDetailsAreDropped(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("svc", &buf)

	log.Debug(context.Background(), "bad_details", "chan details", map[string]any{"ch": make(chan int)})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "bad_details", entries[0].Action)
	assert.Nil(t, entries[0].Details)
}

func TestBlankIDsLeaveContextUntouched(t *testing.T) {
	log := NewWithWriter("svc", nil)
	ctx := context.Background()
	assert.Equal(t, ctx, log.WithRequestID(ctx, " "))
	assert.Equal(t, ctx, log.WithOrderID(ctx, ""))
}
