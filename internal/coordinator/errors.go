package coordinator

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a Coordinator operation matches exactly
// one of these with errors.Is.
var (
	ErrAuth       = errors.New("authentication failed")
	ErrUpdate     = errors.New("status update failed")
	ErrAccept     = errors.New("accept order failed")
	ErrStatus     = errors.New("order status update failed")
	ErrFetch      = errors.New("fetch failed")
	ErrWithdrawal = errors.New("withdrawal failed")
	ErrRide       = errors.New("ride request failed")
	ErrForbidden  = errors.New("operation not allowed for this session")
)

// OpError describes a failed operation. Kind is one of the package error
// kinds; Err is the underlying cause, if any.
type OpError struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *OpError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func opErr(kind error, op, msg string, cause error) error {
	return &OpError{Kind: kind, Op: op, Msg: msg, Err: cause}
}

var kindNames = map[error]string{
	ErrAuth:       "AuthError",
	ErrUpdate:     "UpdateError",
	ErrAccept:     "AcceptError",
	ErrStatus:     "StatusError",
	ErrFetch:      "FetchError",
	ErrWithdrawal: "WithdrawalError",
	ErrRide:       "RideError",
	ErrForbidden:  "ForbiddenError",
}

// KindName returns the taxonomy name of e's kind, e.g. "AcceptError".
func (e *OpError) KindName() string {
	if name, ok := kindNames[e.Kind]; ok {
		return name
	}
	return "Error"
}
