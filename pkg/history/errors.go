package history

import "errors"

var (
	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("database error")

	// ErrEmptyAddress is returned when a record has no server address.
	ErrEmptyAddress = errors.New("server address is empty")

	// ErrUnsettledStatus is returned for statuses that are not a probe outcome.
	ErrUnsettledStatus = errors.New("status is not a probe outcome")
)
