package contracts

import (
	"encoding/json"
	"time"
)

// WSAuthFrame is the first frame a client sends on /ws/session.
type WSAuthFrame struct {
	Type  string `json:"type"` // "auth"
	Token string `json:"token"`
}

// WSSessionSnapshot carries the coordinator state after every change.
type WSSessionSnapshot struct {
	Type      string          `json:"type"` // "session_snapshot"
	Version   uint64          `json:"version"`
	State     json.RawMessage `json:"state"`
	Timestamp time.Time       `json:"timestamp"`
}

// WSError is sent before the server closes a socket on a protocol error.
type WSError struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}
