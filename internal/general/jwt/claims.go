package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ride-coordinator/internal/domain/user"
)

const issuer = "ride-coordinator"

// Claims identify one signed-in account. The subject is the account ID and
// the token ID names the coordinator session it was issued for.
type Claims struct {
	Role user.Role `json:"role"`
	Name string    `json:"name,omitempty"`
	jwtlib.RegisteredClaims
}

var _ jwtlib.Claims = (*Claims)(nil)

// NewAccountClaims builds claims valid from now for ttl.
func NewAccountClaims(account *user.Account, ttl time.Duration, now time.Time) *Claims {
	now = now.UTC()
	return &Claims{
		Role: account.Role,
		Name: account.Name,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   account.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
}

// AccountID returns the subject.
func (claims *Claims) AccountID() string {
	return claims.Subject
}

// SessionID returns the token ID.
func (claims *Claims) SessionID() string {
	return claims.ID
}
