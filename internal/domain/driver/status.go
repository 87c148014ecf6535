package driver

import (
	"errors"
	"strings"
)

// Status is a driver work status as stored in the `drivers.work_status` column.
type Status string

const (
	StatusOffline Status = "offline"
	StatusOnline  Status = "online"
	StatusBusy    Status = "busy"
)

var ErrInvalidStatus = errors.New("invalid driver status")

var labels = map[Status]string{
	StatusOffline: "離線",
	StatusOnline:  "上線中",
	StatusBusy:    "服務中",
}

// ParseStatus normalizes (lowercases+trims) and validates a driver status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether the driver status is one of the allowed driver status constants.
func (status Status) Valid() bool {
	_, ok := labels[status]
	return ok
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// Label returns the display label.
func (status Status) Label() string {
	if label, ok := labels[status]; ok {
		return label
	}
	return string(status)
}

// Working reports whether the driver can be offered orders.
func (status Status) Working() bool {
	return status == StatusOnline
}
