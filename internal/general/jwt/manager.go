package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"ride-coordinator/internal/domain/user"
)

var (
	ErrEmptySecret   = errors.New("jwt: empty secret key")
	ErrNoAuthHeader  = errors.New("authorization header missing")
	ErrBadAuthScheme = errors.New("authorization must be 'Bearer <token>'")
	ErrInvalidToken  = errors.New("invalid token")
	ErrRoleForbidden = errors.New("role not allowed")
)

// Manager signs and verifies HS256 session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a token manager for secret with the given token lifetime.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	s := strings.TrimSpace(secret)
	if s == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("jwt: ttl must be positive, got %s", ttl)
	}
	return &Manager{secret: []byte(s), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for account.
func (m *Manager) Issue(account *user.Account) (string, *Claims, error) {
	if account == nil || account.ID == "" {
		return "", nil, errors.New("jwt: account id is required")
	}
	if !account.Role.Valid() {
		return "", nil, fmt.Errorf("jwt: invalid role %q", account.Role)
	}

	claims := NewAccountClaims(account, m.ttl, m.now())
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies the signature, issuer, expiry and role of raw.
func (m *Manager) Parse(raw string) (*Claims, error) {
	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(m.now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken reads "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ErrNoAuthHeader
	}
	return unwrapBearer(header)
}

func unwrapBearer(value string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrBadAuthScheme
	}
	return strings.TrimSpace(token), nil
}

// RoleAllowed reports ErrRoleForbidden unless claims carry one of allowed.
// No roles means any role.
func RoleAllowed(claims *Claims, allowed ...user.Role) error {
	if len(allowed) == 0 || slices.Contains(allowed, claims.Role) {
		return nil
	}
	return ErrRoleForbidden
}

type ctxKey struct{}

// InjectClaims adds claims to ctx.
func InjectClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// FromContext extracts claims placed by the middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(*Claims)
	return claims, ok && claims != nil
}
