package handler

import (
	"net/http"
	"time"

	"ride-coordinator/internal/coordinator"
)

type loginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Session   coordinator.State `json:"session"`
}

// handleLogin signs in and returns a bearer token plus the loaded session.
func (handler *CoordinatorHTTPHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	var creds coordinator.Credentials
	if !handler.decodeJSON(ctx, w, r, &creds) {
		return
	}

	c, state, err := handler.registry.Login(ctx, creds)
	if err != nil {
		handler.opError(ctx, w, err)
		return
	}

	token, claims, err := handler.auth.Issue(state.Account)
	if err != nil {
		handler.registry.Logout(ctx, state.Account.ID)
		handler.httpError(ctx, w, http.StatusInternalServerError, "failed to issue token", err)
		return
	}

	handler.logger.Info(ctx, "session_opened", "Session token issued", map[string]any{
		"account_id": state.Account.ID,
		"role":       state.Account.Role,
		"session_id": claims.SessionID(),
		"version":    c.Version(),
	})
	handler.jsonResponse(ctx, w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Session:   state,
	})
}

// handleLogout drops the caller's coordinator. Logging out twice is fine.
func (handler *CoordinatorHTTPHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	claims, err := handler.requireClaims(ctx, w, r)
	if err != nil {
		return
	}

	existed := handler.registry.Logout(ctx, claims.AccountID())
	handler.logger.Info(ctx, "session_closed", "Session closed", map[string]any{
		"account_id": claims.AccountID(),
		"session_id": claims.SessionID(),
		"existed":    existed,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleSession returns the caller's current snapshot.
func (handler *CoordinatorHTTPHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := handler.withReqID(r)
	defer cancel()

	_, c, ok := handler.session(ctx, w, r)
	if !ok {
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, map[string]any{
		"version": c.Version(),
		"session": c.Snapshot(),
	})
}
