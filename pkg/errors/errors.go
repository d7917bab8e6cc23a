package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of address and message errors
type ErrorType int

const (
	ErrorTypeInvalidFormat ErrorType = iota
	ErrorTypeInvalidScheme
	ErrorTypeInvalidHost
	ErrorTypeInvalidPort
	ErrorTypeMalformedHeader
	ErrorTypeMalformedResponse
	ErrorTypeInvalidMethod
	ErrorTypeCompressionError
)

var typeNames = map[ErrorType]string{
	ErrorTypeInvalidFormat:     "invalid format",
	ErrorTypeInvalidScheme:     "invalid scheme",
	ErrorTypeInvalidHost:       "invalid host",
	ErrorTypeInvalidPort:       "invalid port",
	ErrorTypeMalformedHeader:   "malformed header",
	ErrorTypeMalformedResponse: "malformed response",
	ErrorTypeInvalidMethod:     "invalid method",
	ErrorTypeCompressionError:  "compression error",
}

// String returns the short name of the error type
func (t ErrorType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("error type %d", int(t))
}

// Error represents a structured KENUTS parsing error
type Error struct {
	Type    ErrorType
	Message string
	Context string
	Raw     []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("kenuts: %s (context: %s)", e.Message, e.Context)
}

// NewError creates a new Error
func NewError(errType ErrorType, message, context string, raw []byte) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Context: context,
		Raw:     raw,
	}
}

// IsParseError checks if an error is (or wraps) a parsing error
func IsParseError(err error) bool {
	var e *Error
	return stderrors.As(err, &e)
}

// IsType reports whether err is (or wraps) an Error of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Type == errType
}
