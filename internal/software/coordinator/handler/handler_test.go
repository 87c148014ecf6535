package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-coordinator/internal/coordinator"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/general/jwt"
	"ride-coordinator/internal/testutil"
)

type fixture struct {
	registry *coordinator.Registry
	srv      *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStore(t)
	log := testutil.Logger(t)

	registry := coordinator.NewRegistry(func() *coordinator.Coordinator {
		return coordinator.New(store,
			coordinator.WithLogger(log),
			coordinator.WithCompletionGrace(0),
			coordinator.WithClock(func() time.Time { return testutil.Noon }),
		)
	})
	t.Cleanup(registry.CloseAll)

	mgr, err := jwt.NewManager("handler-secret", time.Hour)
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewCoordinatorHTTPHandler(registry, log, mgr, nil).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &fixture{registry: registry, srv: srv}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (int, map[string]json.RawMessage) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, f.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]json.RawMessage{}
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (f *fixture) login(t *testing.T, identifier, password string) string {
	t.Helper()
	status, body := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"identifier": identifier,
		"password":   password,
	})
	require.Equal(t, http.StatusOK, status)
	var token string
	require.NoError(t, json.Unmarshal(body["token"], &token))
	require.NotEmpty(t, token)
	return token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestLoginReturnsTokenAndSession(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"identifier": testutil.DriverPhone,
		"password":   testutil.Password,
	})
	require.Equal(t, http.StatusOK, status)

	session := decode[coordinator.State](t, body["session"])
	require.NotNil(t, session.Account)
	assert.Equal(t, testutil.DriverID, session.Account.ID)
	assert.NotNil(t, session.FindAvailable(testutil.PendingOrderID))
	assert.Equal(t, 1, f.registry.Len())
}

func TestLoginRejectsBadPassword(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"identifier": testutil.DriverPhone,
		"password":   "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AuthError", decode[string](t, body["kind"]))
	assert.Zero(t, f.registry.Len())
}

func TestRoutesRequireToken(t *testing.T) {
	f := newFixture(t)

	status, _ := f.do(t, http.MethodGet, "/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDriverRoutesRejectPassengers(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, testutil.PassengerPhone, testutil.Password)

	status, _ := f.do(t, http.MethodGet, "/orders/available", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestDriverRideLifecycle(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, testutil.DriverPhone, testutil.Password)
	path := "/orders/" + testutil.PendingOrderID

	status, _ := f.do(t, http.MethodPost, "/drivers/me/status", token, map[string]string{"status": "online"})
	require.Equal(t, http.StatusOK, status)

	status, body := f.do(t, http.MethodPost, path+"/accept", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, order.StatusAccepted, decode[order.Status](t, body["status"]))

	status, body = f.do(t, http.MethodPost, path+"/status", token, map[string]string{"from": "accepted"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `"pickup_going"`, string(body["status"]))

	// A second client still holding "accepted" is stale.
	status, body = f.do(t, http.MethodPost, path+"/status", token, map[string]string{"from": "accepted"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "StatusError", decode[string](t, body["kind"]))

	for range 6 {
		status, _ = f.do(t, http.MethodPost, path+"/status", token, nil)
		require.Equal(t, http.StatusOK, status)
	}

	// Released once the grace delay passes.
	require.Eventually(t, func() bool {
		c, ok := f.registry.Get(testutil.DriverID)
		if !ok {
			return false
		}
		session := c.Snapshot().Driver
		return session.CurrentOrder == nil && session.Status == "online"
	}, 2*time.Second, 20*time.Millisecond)

	status, body = f.do(t, http.MethodGet, "/drivers/me/orders?status=completed", token, nil)
	require.Equal(t, http.StatusOK, status)
	orders := decode[[]order.Order](t, body["orders"])
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	assert.Contains(t, ids, testutil.PendingOrderID)
}

func TestAcceptWhileOfflineIsUnprocessable(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, testutil.DriverPhone, testutil.Password)

	status, body := f.do(t, http.MethodPost, "/orders/"+testutil.PendingOrderID+"/accept", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "AcceptError", decode[string](t, body["kind"]))
}

func TestWithdrawalBelowMinimum(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, testutil.DriverPhone, testutil.Password)

	status, body := f.do(t, http.MethodPost, "/drivers/me/withdrawals", token, map[string]any{
		"amount":         100,
		"bank_account":   "012-345678",
		"account_holder": "王小明",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "WithdrawalError", decode[string](t, body["kind"]))
}

func TestEarningsRejectsUnknownPeriod(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, testutil.DriverPhone, testutil.Password)

	status, _ := f.do(t, http.MethodGet, "/drivers/me/earnings?period=decade", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := f.do(t, http.MethodGet, "/drivers/me/earnings?period=today", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `"today"`, string(body["period"]))
}

func TestPassengerRequestsAndCancelsRide(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, testutil.PassengerPhone, testutil.Password)

	status, body := f.do(t, http.MethodPost, "/rides", token, map[string]any{
		"pickup":  map[string]any{"address": "台北車站", "latitude": 25.0478, "longitude": 121.5170},
		"dropoff": map[string]any{"address": "台北101", "latitude": 25.0340, "longitude": 121.5645},
	})
	require.Equal(t, http.StatusCreated, status)
	id := decode[string](t, body["id"])
	require.NotEmpty(t, id)
	assert.Equal(t, `"pending"`, string(body["status"]))

	status, body = f.do(t, http.MethodPost, "/rides/"+id+"/cancel", token, map[string]string{"reason": "plans changed"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `"cancelled"`, string(body["status"]))
}

func TestRideWithSamePickupAndDropoff(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, testutil.PassengerPhone, testutil.Password)

	place := map[string]any{"address": "台北車站", "latitude": 25.0478, "longitude": 121.5170}
	status, body := f.do(t, http.MethodPost, "/rides", token, map[string]any{"pickup": place, "dropoff": place})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "RideError", decode[string](t, body["kind"]))
}

func TestLogoutEndsSession(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, testutil.DriverPhone, testutil.Password)

	status, _ := f.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, status)
	assert.Zero(t, f.registry.Len())

	status, _ = f.do(t, http.MethodGet, "/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `"ok"`, string(body["status"]))
}
