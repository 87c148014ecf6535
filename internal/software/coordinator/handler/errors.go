package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"ride-coordinator/internal/coordinator"
	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/domain/earnings"
	"ride-coordinator/internal/domain/geo"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/domain/user"
	"ride-coordinator/internal/ports"
)

var conflicts = []error{
	ports.ErrOrderTaken,
	order.ErrStaleStatus,
	order.ErrInvalidTransition,
	order.ErrNotCancellable,
	order.ErrAlreadyAssigned,
	order.ErrNotAssignedDriver,
	driver.ErrOrderInProgress,
}

var invalid = []error{
	earnings.ErrBelowMinimum,
	earnings.ErrBankAccountRequired,
	earnings.ErrAccountHolderRequired,
	earnings.ErrInsufficientBalance,
	earnings.ErrInvalidPeriod,
	order.ErrInvalidStatus,
	order.ErrSamePickupDropoff,
	order.ErrNegativeFareInputs,
	geo.ErrEmptyAddress,
	geo.ErrInvalidLatitude,
	geo.ErrInvalidLongitude,
	driver.ErrInvalidStatus,
	driver.ErrBusyNotSelectable,
	driver.ErrNotOnline,
	chat.ErrEmptyMessage,
	chat.ErrMessageTooLong,
}

var authFailures = []error{
	ports.ErrInvalidCredentials,
	user.ErrAccountDisabled,
	user.ErrInvalidRole,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// classify picks the status code for a coordinator error. Rule violations
// are 4xx; anything the backend failed to do is 502.
func classify(err error) (int, errorBody) {
	var op *coordinator.OpError
	if !errors.As(err, &op) {
		return http.StatusInternalServerError, errorBody{Error: "internal error"}
	}

	body := errorBody{Error: op.Msg, Kind: op.KindName(), Op: op.Op}
	if body.Error == "" {
		body.Error = op.Kind.Error()
	}
	clientErr := func(status int) (int, errorBody) {
		if op.Err != nil {
			body.Detail = op.Err.Error()
		}
		return status, body
	}

	switch {
	case errors.Is(err, coordinator.ErrForbidden):
		return clientErr(http.StatusForbidden)
	case errors.Is(err, coordinator.ErrAuth) && (op.Err == nil || isAny(err, authFailures)):
		return clientErr(http.StatusUnauthorized)
	case errors.Is(err, ports.ErrNotFound):
		return clientErr(http.StatusNotFound)
	case isAny(err, conflicts):
		return clientErr(http.StatusConflict)
	case isAny(err, invalid) || op.Err == nil:
		return clientErr(http.StatusUnprocessableEntity)
	}

	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		body.Detail = "database error"
	case errors.Is(err, context.DeadlineExceeded):
		body.Detail = "backend timed out"
	default:
		body.Detail = "backend unavailable"
	}
	return http.StatusBadGateway, body
}
