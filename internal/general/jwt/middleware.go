package jwt

import (
	"encoding/json"
	"errors"
	"net/http"

	"ride-coordinator/internal/domain/user"
)

// Middleware validates the bearer token, enforces roles and injects the
// claims into the request context.
func Middleware(mgr *Manager, allowed ...user.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, err := BearerToken(r)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, err)
				return
			}
			claims, err := mgr.Parse(raw)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, ErrInvalidToken)
				return
			}
			if err := RoleAllowed(claims, allowed...); err != nil {
				writeAuthError(w, http.StatusForbidden, err)
				return
			}
			next(w, r.WithContext(InjectClaims(r.Context(), claims)))
		}
	}
}

// RequireClaims returns the claims injected by Middleware.
func RequireClaims(r *http.Request) (*Claims, error) {
	claims, ok := FromContext(r.Context())
	if !ok {
		return nil, errors.New("jwt: no claims in request context")
	}
	return claims, nil
}

func writeAuthError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
