package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"ride-coordinator/internal/coordinator"
	"ride-coordinator/internal/domain/user"
	"ride-coordinator/internal/general/jwt"
	"ride-coordinator/internal/general/logger"
)

const (
	requestTimeout = 5 * time.Second
	maxBodyBytes   = 1 << 20
)

var errSessionEnded = errors.New("session ended; sign in again")

// CoordinatorHTTPHandler exposes the per-account coordinators over HTTP.
type CoordinatorHTTPHandler struct {
	registry *coordinator.Registry
	logger   *logger.Logger
	auth     *jwt.Manager
	stream   http.Handler
}

// NewCoordinatorHTTPHandler wires the handler. stream serves GET /ws/session.
func NewCoordinatorHTTPHandler(
	registry *coordinator.Registry,
	logger *logger.Logger,
	auth *jwt.Manager,
	stream http.Handler,
) *CoordinatorHTTPHandler {
	return &CoordinatorHTTPHandler{registry: registry, logger: logger, auth: auth, stream: stream}
}

// RegisterRoutes mounts every coordinator endpoint on mux.
func (handler *CoordinatorHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	anyRole := jwt.Middleware(handler.auth)
	driverOnly := jwt.Middleware(handler.auth, user.RoleDriver)
	passengerOnly := jwt.Middleware(handler.auth, user.RolePassenger)
	riders := jwt.Middleware(handler.auth, user.RoleDriver, user.RolePassenger)

	mux.HandleFunc("POST /auth/login", handler.handleLogin)
	mux.HandleFunc("POST /auth/logout", anyRole(handler.handleLogout))
	mux.HandleFunc("GET /session", anyRole(handler.handleSession))

	mux.HandleFunc("POST /drivers/me/status", driverOnly(handler.handleDriverStatus))
	mux.HandleFunc("POST /drivers/me/location", driverOnly(handler.handleLocation))
	mux.HandleFunc("GET /drivers/me/orders", driverOnly(handler.handleDriverOrders))
	mux.HandleFunc("GET /drivers/me/earnings", driverOnly(handler.handleEarnings))
	mux.HandleFunc("POST /drivers/me/withdrawals", driverOnly(handler.handleWithdrawal))

	mux.HandleFunc("GET /orders/available", driverOnly(handler.handleAvailable))
	mux.HandleFunc("POST /orders/{order_id}/accept", driverOnly(handler.handleAccept))
	mux.HandleFunc("POST /orders/{order_id}/status", driverOnly(handler.handleOrderStatus))

	mux.HandleFunc("POST /rides", passengerOnly(handler.handleRequestRide))
	mux.HandleFunc("GET /rides", passengerOnly(handler.handlePassengerRides))
	mux.HandleFunc("POST /rides/{order_id}/cancel", passengerOnly(handler.handleCancelRide))

	mux.HandleFunc("GET /conversations", riders(handler.handleConversations))
	mux.HandleFunc("GET /conversations/{conversation_id}/messages", riders(handler.handleMessages))
	mux.HandleFunc("POST /conversations/{conversation_id}/messages", riders(handler.handleSendMessage))

	mux.HandleFunc("GET /notifications", anyRole(handler.handleNotifications))
	mux.HandleFunc("POST /notifications/{notification_id}/read", anyRole(handler.handleMarkRead))

	if handler.stream != nil {
		mux.Handle("GET /ws/session", handler.stream)
	}
	mux.HandleFunc("GET /health", handler.handleHealth)
}

// ----- general helpers -----

// session resolves the coordinator behind the request's token.
func (handler *CoordinatorHTTPHandler) session(ctx context.Context, w http.ResponseWriter, r *http.Request) (*jwt.Claims, *coordinator.Coordinator, bool) {
	claims, err := handler.requireClaims(ctx, w, r)
	if err != nil {
		return nil, nil, false
	}
	c, ok := handler.registry.Get(claims.AccountID())
	if !ok {
		handler.httpError(ctx, w, http.StatusUnauthorized, errSessionEnded.Error(), errSessionEnded)
		return nil, nil, false
	}
	return claims, c, true
}

func (handler *CoordinatorHTTPHandler) requireClaims(ctx context.Context, w http.ResponseWriter, r *http.Request) (*jwt.Claims, error) {
	claims, err := jwt.RequireClaims(r)
	if err != nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", err)
		return nil, err
	}
	return claims, nil
}

// decodeJSON strictly decodes a bounded JSON body into dst.
func (handler *CoordinatorHTTPHandler) decodeJSON(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return false
	}
	return true
}

// jsonResponse encodes data and writes it with status.
func (handler *CoordinatorHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	buf := []byte("{}")
	if data != nil {
		var err error
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

type errorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Op     string `json:"op,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// httpError logs and writes a JSON error with a message.
func (handler *CoordinatorHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	handler.logger.Error(ctx, actionFor(status), msg, err, nil)
	handler.jsonResponse(ctx, w, status, errorBody{Error: msg})
}

// opError maps a coordinator error onto a status code and writes it.
func (handler *CoordinatorHTTPHandler) opError(ctx context.Context, w http.ResponseWriter, err error) {
	status, body := classify(err)
	handler.logger.Error(ctx, actionFor(status), body.Error, err, map[string]any{"kind": body.Kind, "op": body.Op})
	handler.jsonResponse(ctx, w, status, body)
}

func actionFor(status int) string {
	switch {
	case status >= 500:
		return "http_internal_error"
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return "validation_failed"
	case status == http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	default:
		return "request_failed"
	}
}

// withReqID extracts or generates a request ID, adds it to the context and
// bounds the request.
func (handler *CoordinatorHTTPHandler) withReqID(r *http.Request) (context.Context, context.CancelFunc) {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	ctx := handler.logger.WithRequestID(r.Context(), reqID)
	return context.WithTimeout(ctx, requestTimeout)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// handleHealth returns a minimal JSON health status payload.
func (handler *CoordinatorHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "sessions": handler.registry.Len()})
}
