package coordinator

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Policy decides how a driver status change is reconciled with the backend.
type Policy string

const (
	// PolicyFireAndSet sets local state regardless of the remote outcome and
	// surfaces the remote error.
	PolicyFireAndSet Policy = "fire_and_set"
	// PolicyRevert sets local state, calls the backend and restores the
	// previous status if the call fails.
	PolicyRevert Policy = "revert"
	// PolicyRetry is PolicyRevert with the remote call retried using
	// exponential backoff before giving up.
	PolicyRetry Policy = "retry"
)

var ErrInvalidPolicy = errors.New("invalid consistency policy")

// ParsePolicy normalizes (lowercases+trims) and validates a policy string.
// An empty string selects PolicyRevert.
func ParsePolicy(in string) (Policy, error) {
	in = strings.ToLower(strings.TrimSpace(in))
	if in == "" {
		return PolicyRevert, nil
	}
	policy := Policy(in)
	if policy.Valid() {
		return policy, nil
	}
	return "", ErrInvalidPolicy
}

// Valid reports whether policy is one of the allowed policy constants.
func (policy Policy) Valid() bool {
	switch policy {
	case PolicyFireAndSet, PolicyRevert, PolicyRetry:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Policy.
func (policy Policy) String() string {
	return string(policy)
}

// retry runs fn up to attempts times, doubling the wait between tries
// starting at base. It stops early when ctx is done.
func retry(ctx context.Context, attempts int, base time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	wait := base
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(err, ctx.Err())
		case <-t.C:
		}
		wait *= 2
	}
	return err
}
