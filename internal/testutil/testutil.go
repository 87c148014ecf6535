// Package testutil builds seeded in-memory backends and tokens for tests.
package testutil

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ride-coordinator/internal/general/logger"
	"ride-coordinator/internal/general/sqlite"
)

// Noon is the fixed clock of seeded stores. The demo trip completed two
// hours earlier falls inside "today".
var Noon = time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

// Demo credentials loaded by the seed.
const (
	DriverID         = "drv-001"
	DriverPhone      = "0912345678"
	PassengerID      = "psg-001"
	PassengerPhone   = "0987654321"
	Password         = "123456"
	AdminUsername    = "admin"
	AdminPassword    = "admin123"
	ConversationID   = "CV001"
	PendingOrderID   = "RD001"
	PendingOrderFare = 350
)

// NewStore opens a private in-memory SQLite database, seeds it with the demo
// fixtures and closes it when the test ends.
func NewStore(t testing.TB) *sqlite.Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sqlite.Open("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)

	store := sqlite.NewStore(db)
	store.SetClock(func() time.Time { return Noon })
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Seed(context.Background()))
	return store
}

// Logger discards output unless the test runs verbose.
func Logger(t testing.TB) *logger.Logger {
	t.Helper()
	if testing.Verbose() {
		return logger.NewWithWriter("test", testWriter{t})
	}
	return logger.NewWithWriter("test", io.Discard)
}

type testWriter struct{ t testing.TB }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
