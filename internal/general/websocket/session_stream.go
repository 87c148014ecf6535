package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"ride-coordinator/internal/coordinator"
	"ride-coordinator/internal/general/contracts"
	"ride-coordinator/internal/general/jwt"
	"ride-coordinator/internal/general/logger"
)

// Sessions resolves the coordinator of a signed-in account.
type Sessions interface {
	Get(accountID string) (*coordinator.Coordinator, bool)
}

// SessionStream serves GET /ws/session: after a valid auth frame it pushes
// a session_snapshot frame for the current state and after every change.
type SessionStream struct {
	log      *logger.Logger
	jwt      *jwt.Manager
	sessions Sessions
	upgrader websocket.Upgrader
}

// NewSessionStream builds the handler.
func NewSessionStream(log *logger.Logger, mgr *jwt.Manager, sessions Sessions) *SessionStream {
	return &SessionStream{
		log:      log,
		jwt:      mgr,
		sessions: sessions,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096},
	}
}

func (s *SessionStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error(ctx, "ws_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	defer ws.Close()
	c := &conn{ws: ws}

	ws.SetReadLimit(maxFrameBytes)
	_ = ws.SetReadDeadline(time.Now().Add(authWait))
	mt, frame, err := ws.ReadMessage()
	if err != nil {
		s.log.Error(ctx, "ws_auth_read_failed", "No auth frame before deadline", err, nil)
		c.fail("authentication timeout")
		return
	}
	if mt != websocket.TextMessage {
		c.fail("auth frame must be text")
		return
	}

	claims, err := jwt.ValidateWSAuth(frame, s.jwt)
	if err != nil {
		s.log.Error(ctx, "ws_auth_failed", "Invalid WebSocket auth frame", err, nil)
		c.fail("authentication failed")
		return
	}
	accountID := claims.AccountID()

	coord, ok := s.sessions.Get(accountID)
	if !ok {
		c.fail("no active session")
		return
	}

	updates, unsubscribe := coord.Subscribe()
	defer unsubscribe()

	details := map[string]any{"account_id": accountID, "session_id": claims.SessionID()}
	s.log.Info(ctx, "ws_connected", "Session stream connected", details)

	// the reader only watches for close frames and keeps the pong deadline
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Error(ctx, "ws_unexpected_close", "Session stream closed unexpectedly", err, details)
				}
				return
			}
		}
	}()

	s.pump(ctx, c, updates, done, details)
	s.log.Info(ctx, "ws_disconnected", "Session stream closed", details)
}

func (s *SessionStream) pump(ctx context.Context, c *conn, updates <-chan coordinator.Update, done <-chan struct{}, details map[string]any) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case <-ctx.Done():
			c.close(websocket.CloseGoingAway, "server shutting down")
			return

		case u, ok := <-updates:
			if !ok {
				c.close(websocket.CloseNormalClosure, "session ended")
				return
			}
			if err := s.push(c, u); err != nil {
				s.log.Error(ctx, "ws_push_failed", "Failed to push session snapshot", err, details)
				return
			}

		case <-ticker.C:
			if err := c.ping(); err != nil {
				s.log.Error(ctx, "ws_ping_failed", "Failed to send ping", err, details)
				return
			}
		}
	}
}

func (s *SessionStream) push(c *conn, u coordinator.Update) error {
	state, err := json.Marshal(u.State)
	if err != nil {
		return err
	}
	return c.writeJSON(contracts.WSSessionSnapshot{
		Type:      contracts.WSTypeSessionSnapshot,
		Version:   u.Version,
		State:     state,
		Timestamp: time.Now().UTC(),
	})
}
