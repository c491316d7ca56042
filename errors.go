package redisconn

import (
	"errors"
	"fmt"
)

var (
	// ErrNoHostsAvailable is returned when a resolution is asked to try
	// an empty candidate list.
	ErrNoHostsAvailable = errors.New("no hosts available")

	// ErrClusterNotSupported is returned when cluster startup nodes are
	// configured. Cluster topology resolution is not implemented.
	ErrClusterNotSupported = errors.New("cluster mode not yet implemented")

	// ErrNotReusable is returned by Connection.Release for a connection
	// that must not go back to an idle pool.
	ErrNotReusable = errors.New("connection is not in a reusable state")
)

// UnknownFieldError reports a configuration key that is absent from the
// closed parameter schema. Typos in configuration fail the construction
// or call that supplied them instead of being silently ignored.
type UnknownFieldError struct {
	Field string
}

func (e UnknownFieldError) Error() string {
	return fmt.Sprintf("field %s does not exist", e.Field)
}

// DSNError reports a connection string that did not match either of the
// recognized URL grammars.
type DSNError struct {
	Cause string
}

func (e DSNError) Error() string {
	return "could not parse DSN: " + e.Cause
}
