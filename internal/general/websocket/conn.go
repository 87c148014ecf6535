package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ride-coordinator/internal/general/contracts"
)

const (
	writeTimeout   = 5 * time.Second
	closeAckWindow = 2 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	authWait       = 5 * time.Second
	maxFrameBytes  = 1 << 16
)

// conn serializes writes on one socket; gorilla allows a single writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (c *conn) close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason),
		time.Now().Add(closeAckWindow))
}

// fail sends an error frame and a policy-violation close.
func (c *conn) fail(msg string) {
	_ = c.writeJSON(contracts.WSError{Type: contracts.WSTypeError, Message: msg})
	c.close(websocket.ClosePolicyViolation, msg)
}
