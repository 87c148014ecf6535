package cli

import (
	"fmt"
	"time"

	"ride-coordinator/internal/domain/user"
	"ride-coordinator/internal/general/jwt"
)

// GenerateUserToken mints a JWT for an existing account id. The account is
// not looked up; the token only opens routes once that account has signed in.
//
// Typical use (dev-only):
//
//	token, _, err := cli.GenerateUserToken(secret, 2*time.Hour, "drv-001", "driver")
func GenerateUserToken(secret string, ttl time.Duration, userID, roleStr string) (string, jwt.Claims, error) {
	role, err := user.ParseRole(roleStr)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("invalid role %q: %w", roleStr, err)
	}

	mgr, err := jwt.NewManager(secret, ttl)
	if err != nil {
		return "", jwt.Claims{}, err
	}

	token, claims, err := mgr.Issue(&user.Account{ID: userID, Role: role, Name: userID})
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("issue token: %w", err)
	}
	return token, *claims, nil
}
