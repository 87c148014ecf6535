package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-coordinator/internal/coordinator"
	"ride-coordinator/internal/ports"
	"ride-coordinator/internal/testutil"
)

func newService(t *testing.T) (*adminService, *coordinator.Registry) {
	t.Helper()
	store := testutil.NewStore(t)
	log := testutil.Logger(t)

	registry := coordinator.NewRegistry(func() *coordinator.Coordinator {
		return coordinator.New(store, coordinator.WithLogger(log))
	})
	t.Cleanup(registry.CloseAll)

	svc := NewAdminService(store, registry, log).(*adminService)
	svc.now = func() time.Time { return testutil.Noon }
	return svc, registry
}

func signIn(t *testing.T, registry *coordinator.Registry, identifier, password string) {
	t.Helper()
	_, _, err := registry.Login(context.Background(), coordinator.Credentials{Identifier: identifier, Password: password})
	require.NoError(t, err)
}

func TestSystemOverview(t *testing.T) {
	svc, registry := newService(t)
	signIn(t, registry, testutil.DriverPhone, testutil.Password)

	got, err := svc.GetSystemOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, got.OrdersByStatus["pending"])
	assert.Equal(t, 259, got.RevenueToday)
	assert.Equal(t, 259, got.AverageFareToday)
	assert.Equal(t, 1, got.LiveSessions)
	assert.Equal(t, testutil.Noon, got.Timestamp)
}

type failingBackend struct{}

func (failingBackend) Overview(context.Context, time.Time) (ports.Overview, error) {
	return ports.Overview{}, errors.New("connection refused")
}

func TestSystemOverviewBackendDown(t *testing.T) {
	svc, _ := newService(t)
	svc.backend = failingBackend{}

	_, err := svc.GetSystemOverview(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestLiveSessionsPaging(t *testing.T) {
	svc, registry := newService(t)
	signIn(t, registry, testutil.DriverPhone, testutil.Password)
	signIn(t, registry, testutil.PassengerPhone, testutil.Password)
	signIn(t, registry, testutil.AdminUsername, testutil.AdminPassword)

	first, err := svc.GetLiveSessions(context.Background(), "1", "2")
	require.NoError(t, err)
	assert.Equal(t, 3, first.TotalCount)
	require.Len(t, first.Sessions, 2)

	rest, err := svc.GetLiveSessions(context.Background(), "2", "2")
	require.NoError(t, err)
	require.Len(t, rest.Sessions, 1)

	var driverRow ports.LiveSession
	for _, s := range append(first.Sessions, rest.Sessions...) {
		if s.AccountID == testutil.DriverID {
			driverRow = s
		}
	}
	assert.Equal(t, "driver", driverRow.Role)
	assert.Equal(t, "offline", driverRow.DriverStatus)

	past, err := svc.GetLiveSessions(context.Background(), "9", "bogus")
	require.NoError(t, err)
	assert.Empty(t, past.Sessions)
	assert.Equal(t, defaultPageSize, past.PageSize)
}
