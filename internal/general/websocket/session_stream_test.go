package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-coordinator/internal/coordinator"
	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/general/contracts"
	"ride-coordinator/internal/general/jwt"
	"ride-coordinator/internal/testutil"
)

type fixture struct {
	registry *coordinator.Registry
	mgr      *jwt.Manager
	url      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStore(t)
	log := testutil.Logger(t)

	registry := coordinator.NewRegistry(func() *coordinator.Coordinator {
		return coordinator.New(store, coordinator.WithLogger(log))
	})
	t.Cleanup(registry.CloseAll)

	mgr, err := jwt.NewManager("ws-secret", time.Hour)
	require.NoError(t, err)

	srv := httptest.NewServer(NewSessionStream(log, mgr, registry))
	t.Cleanup(srv.Close)

	return &fixture{registry: registry, mgr: mgr, url: "ws" + strings.TrimPrefix(srv.URL, "http")}
}

func (f *fixture) login(t *testing.T) (*coordinator.Coordinator, string) {
	t.Helper()
	c, state, err := f.registry.Login(context.Background(), coordinator.Credentials{
		Identifier: testutil.DriverPhone, Password: testutil.Password,
	})
	require.NoError(t, err)
	token, _, err := f.mgr.Issue(state.Account)
	require.NoError(t, err)
	return c, token
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readPayload(t *testing.T, ws *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, payload, err := ws.ReadMessage()
	require.NoError(t, err)
	return payload
}

func readFrame(t *testing.T, ws *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	var frame map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(readPayload(t, ws), &frame))
	return frame
}

func readSnapshot(t *testing.T, ws *websocket.Conn) (contracts.WSSessionSnapshot, coordinator.State) {
	t.Helper()
	var snap contracts.WSSessionSnapshot
	require.NoError(t, json.Unmarshal(readPayload(t, ws), &snap))
	require.Equal(t, contracts.WSTypeSessionSnapshot, snap.Type)

	var state coordinator.State
	require.NoError(t, json.Unmarshal(snap.State, &state))
	return snap, state
}

func TestSessionStreamPushesChanges(t *testing.T) {
	f := newFixture(t)
	c, token := f.login(t)

	ws := dial(t, f.url)
	require.NoError(t, ws.WriteJSON(contracts.WSAuthFrame{Type: "auth", Token: "Bearer " + token}))

	first, state := readSnapshot(t, ws)
	assert.Equal(t, c.Version(), first.Version)
	assert.Equal(t, testutil.DriverID, state.Account.ID)

	require.NoError(t, c.UpdateDriverStatus(context.Background(), driver.StatusOnline))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snap, state := readSnapshot(t, ws)
		assert.Greater(t, snap.Version, first.Version)
		if state.Driver.Status == driver.StatusOnline {
			return
		}
	}
	t.Fatal("no snapshot with the online status")
}

func TestSessionStreamClosesOnLogout(t *testing.T) {
	f := newFixture(t)
	_, token := f.login(t)

	ws := dial(t, f.url)
	require.NoError(t, ws.WriteJSON(contracts.WSAuthFrame{Type: "auth", Token: "Bearer " + token}))
	readSnapshot(t, ws)

	require.True(t, f.registry.Logout(context.Background(), testutil.DriverID))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, _, err := ws.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
			return
		}
	}
}

func TestSessionStreamRejectsBadAuth(t *testing.T) {
	f := newFixture(t)
	_, token := f.login(t)

	cases := map[string]contracts.WSAuthFrame{
		"wrong type": {Type: "hello", Token: "Bearer " + token},
		"no bearer":  {Type: "auth", Token: token},
		"forged":     {Type: "auth", Token: "Bearer x.y.z"},
	}
	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			ws := dial(t, f.url)
			require.NoError(t, ws.WriteJSON(frame))

			got := readFrame(t, ws)
			assert.JSONEq(t, `"error"`, string(got["type"]))

			_, _, err := ws.ReadMessage()
			assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
		})
	}
}

func TestSessionStreamNeedsActiveSession(t *testing.T) {
	f := newFixture(t)
	_, token := f.login(t)
	f.registry.Logout(context.Background(), testutil.DriverID)

	ws := dial(t, f.url)
	require.NoError(t, ws.WriteJSON(contracts.WSAuthFrame{Type: "auth", Token: "Bearer " + token}))

	got := readFrame(t, ws)
	assert.JSONEq(t, `"error"`, string(got["type"]))
	assert.Contains(t, string(got["message"]), "no active session")
}
