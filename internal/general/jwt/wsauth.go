package jwt

import (
	"encoding/json"
	"errors"
	"strings"

	"ride-coordinator/internal/domain/user"
	"ride-coordinator/internal/general/contracts"
)

var ErrBadAuthFrame = errors.New("first frame must be {\"type\":\"auth\",\"token\":\"Bearer <token>\"}")

// ValidateWSAuth checks the first frame of a WebSocket session: the auth
// type, the Bearer wrapping, the token itself and the role.
func ValidateWSAuth(frame []byte, mgr *Manager, allowed ...user.Role) (*Claims, error) {
	var msg contracts.WSAuthFrame
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, ErrBadAuthFrame
	}
	if !strings.EqualFold(strings.TrimSpace(msg.Type), contracts.WSTypeAuth) {
		return nil, ErrBadAuthFrame
	}

	raw, err := unwrapBearer(msg.Token)
	if err != nil {
		return nil, err
	}
	claims, err := mgr.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := RoleAllowed(claims, allowed...); err != nil {
		return nil, err
	}
	return claims, nil
}
