package connector

import (
	"fmt"

	"moff.io/wallet-modal/pkg/errors"
)

var (
	// ErrUserRejected means the user declined in the wallet or dismissed the
	// chooser. The caller may retry.
	ErrUserRejected = errors.New("user rejected")
	// ErrAlreadyConnected is returned by connect calls on a connected session.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrConnectInProgress is returned while a handshake is running.
	ErrConnectInProgress = errors.New("connect in progress")
	// ErrDisconnected is returned when a handshake completes after the
	// session was disconnected.
	ErrDisconnected = errors.New("disconnected during connect")
	// ErrClosed is returned by connect calls on a closed session.
	ErrClosed = errors.New("session closed")
)

// ValidationError rejects a malformed descriptor before anything is shown.
type ValidationError struct {
	Index int
	ID    string
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("provider option %d (%q) missing or invalid %s", e.Index, e.ID, e.Field)
}

// ConnectorError carries a connector's handshake failure verbatim.
type ConnectorError struct {
	ID  string
	Err error
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("connector %v: %v", e.ID, e.Err)
}

func (e *ConnectorError) Unwrap() error {
	return e.Err
}

// PollTransientError is a single field's poll failure. It is only reported,
// never returned to callers.
type PollTransientError struct {
	Field string
	Err   error
}

func (e *PollTransientError) Error() string {
	return fmt.Sprintf("poll %v: %v", e.Field, e.Err)
}

func (e *PollTransientError) Unwrap() error {
	return e.Err
}
