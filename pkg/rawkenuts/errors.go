package rawkenuts

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// ErrConnection matches every transport failure via errors.Is
var ErrConnection = errors.New("connection error")

// ErrResponseTooLarge is wrapped when the peer sends more than Options.MaxResponseSize
var ErrResponseTooLarge = errors.New("response exceeds size limit")

// ErrorType represents the stage or reason of a connection failure
type ErrorType int

const (
	ErrorTypeDNS ErrorType = iota
	ErrorTypeConnection
	ErrorTypeWrite
	ErrorTypeRead
	ErrorTypeTimeout
	ErrorTypeTooLarge
	ErrorTypeCanceled
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeDNS:
		return "dns"
	case ErrorTypeConnection:
		return "connect"
	case ErrorTypeWrite:
		return "write"
	case ErrorTypeRead:
		return "read"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeTooLarge:
		return "too_large"
	case ErrorTypeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ConnectionError is the single failure type of the transport.
// Partial data read before the failure is never attached.
type ConnectionError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is makes every ConnectionError match ErrConnection
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// NewDNSError creates a DNS resolution error
func NewDNSError(err error) *ConnectionError {
	return &ConnectionError{
		Type:    ErrorTypeDNS,
		Message: "DNS resolution failed",
		Err:     err,
	}
}

// NewConnectionError creates a connection establishment error
func NewConnectionError(err error) *ConnectionError {
	return &ConnectionError{
		Type:    ErrorTypeConnection,
		Message: "connection failed",
		Err:     err,
	}
}

// NewWriteError creates a request write error
func NewWriteError(err error) *ConnectionError {
	return &ConnectionError{
		Type:    ErrorTypeWrite,
		Message: "write request failed",
		Err:     err,
	}
}

// NewReadError creates a response read error
func NewReadError(err error) *ConnectionError {
	return &ConnectionError{
		Type:    ErrorTypeRead,
		Message: "read response failed",
		Err:     err,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(err error) *ConnectionError {
	return &ConnectionError{
		Type:    ErrorTypeTimeout,
		Message: "operation timeout",
		Err:     err,
	}
}

// NewTooLargeError creates a size limit error
func NewTooLargeError(limit int64) *ConnectionError {
	return &ConnectionError{
		Type:    ErrorTypeTooLarge,
		Message: fmt.Sprintf("response larger than %d bytes", limit),
		Err:     ErrResponseTooLarge,
	}
}

// NewCanceledError creates a cancellation error
func NewCanceledError(err error) *ConnectionError {
	return &ConnectionError{
		Type:    ErrorTypeCanceled,
		Message: "request canceled",
		Err:     err,
	}
}

// IsTimeout reports whether err is a ConnectionError caused by a timeout
func IsTimeout(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce) && ce.Type == ErrorTypeTimeout
}

// IsCanceled reports whether err is a ConnectionError caused by cancellation
func IsCanceled(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce) && ce.Type == ErrorTypeCanceled
}

// classify maps a raw I/O error to a ConnectionError.
// ctx decides between cancellation and plain deadline expiry.
func classify(ctx context.Context, err error, fallback func(error) *ConnectionError) *ConnectionError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return NewTimeoutError(ctxErr)
		}
		return NewCanceledError(ctxErr)
	}

	var netErr net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewTimeoutError(err)
	}

	return fallback(err)
}
