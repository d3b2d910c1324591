package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry misuse.
var (
	ErrDuplicateRegistration = errors.New("engine: registration id already registered")
	ErrUnknownRegistration   = errors.New("engine: unknown registration id")
	ErrInvalidMode           = errors.New("engine: invalid sync mode")
	ErrDisposed              = errors.New("engine: registry disposed")
)

// SyncError is a failure while turning an editor event into a notification
// or while delivering it.
//
// Serialization errors are raised synchronously by a handler; the event is
// dropped and the sync record keeps its pre-event state. Transport and
// middleware errors surface out of band from the outbox; the optimistic
// state update is not rolled back.
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// Registration is the registration ID the event was handled for.
	Registration string

	// Notebook is the notebook or document URI involved.
	Notebook string

	// Method is the notification method, when one was being built or sent.
	Method string

	// Err is the underlying cause.
	Err error
}

// SyncErrorCode categorizes sync errors.
type SyncErrorCode string

const (
	// ErrCodeSerialization indicates metadata could not be copied for transmission.
	ErrCodeSerialization SyncErrorCode = "SERIALIZATION"

	// ErrCodeTransport indicates the sender rejected a notification.
	ErrCodeTransport SyncErrorCode = "TRANSPORT"

	// ErrCodeMiddleware indicates a middleware hook failed on its own.
	ErrCodeMiddleware SyncErrorCode = "MIDDLEWARE"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("%s: %s %s (registration=%s): %v", e.Code, e.Method, e.Notebook, e.Registration, e.Err)
	}
	return fmt.Sprintf("%s: %s (registration=%s): %v", e.Code, e.Notebook, e.Registration, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SyncError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code SyncErrorCode) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsSerializationError returns true if err is a serialization SyncError.
// Uses errors.As to handle wrapped errors.
func IsSerializationError(err error) bool {
	return hasCode(err, ErrCodeSerialization)
}

// IsTransportError returns true if err is a transport SyncError.
func IsTransportError(err error) bool {
	return hasCode(err, ErrCodeTransport)
}

// IsMiddlewareError returns true if err is a middleware SyncError.
func IsMiddlewareError(err error) bool {
	return hasCode(err, ErrCodeMiddleware)
}
