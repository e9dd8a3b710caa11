// Package errors provides domain-specific error types for dnsprotect.
//
// Errors carry a code so callers can match a whole category with errors.Is
// regardless of the message or the wrapped cause.
package errors

import "fmt"

// ErrorCode represents a category of error that can occur in the application.
type ErrorCode string

const (
	// ErrCodeConfig indicates a configuration-related error.
	ErrCodeConfig ErrorCode = "CONFIG_ERROR"

	// ErrCodeValidation indicates a validation error.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrCodeList indicates an error reading a domain list file.
	ErrCodeList ErrorCode = "LIST_ERROR"

	// ErrCodePacket indicates a DNS message that could not be decoded.
	ErrCodePacket ErrorCode = "PACKET_ERROR"

	// ErrCodeUpstream indicates a failed upstream query.
	ErrCodeUpstream ErrorCode = "UPSTREAM_ERROR"

	// ErrCodeConnectionClosed indicates a pending query lost its connection.
	ErrCodeConnectionClosed ErrorCode = "CONNECTION_CLOSED"

	// ErrCodeTransportClosed indicates the transport was shut down by its owner.
	ErrCodeTransportClosed ErrorCode = "TRANSPORT_CLOSED"

	// ErrCodeCache indicates a response cache failure.
	ErrCodeCache ErrorCode = "CACHE_ERROR"

	// ErrCodeNetwork indicates a network configuration error (iptables, interfaces).
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

	ErrCodePacketTooShort  ErrorCode = "PACKET_TOO_SHORT"
	ErrCodeUnknownStrategy ErrorCode = "UNKNOWN_STRATEGY"
	ErrCodeUnknownMethod   ErrorCode = "UNKNOWN_METHOD"
	ErrCodeCacheMiss       ErrorCode = "CACHE_MISS"
)

var (
	// ErrConnectionClosed rejects queries that were in flight when a DoT connection closed.
	ErrConnectionClosed = New(ErrCodeConnectionClosed, "connection closed")

	// ErrTransportClosed is returned by a transport after Close.
	ErrTransportClosed = New(ErrCodeTransportClosed, "transport closed")

	// ErrPacketTooShort is returned for messages shorter than the DNS header.
	ErrPacketTooShort = New(ErrCodePacketTooShort, "packet shorter than header")

	// ErrUnknownStrategy is returned when a load balancing strategy is not recognised.
	ErrUnknownStrategy = New(ErrCodeUnknownStrategy, "unknown load balancing strategy")

	// ErrUnknownMethod is returned when a forwarding method is not recognised.
	ErrUnknownMethod = New(ErrCodeUnknownMethod, "unknown forwarding method")

	// ErrCacheMiss is returned by cache stores when no entry exists for a key.
	ErrCacheMiss = New(ErrCodeCacheMiss, "cache miss")
)

// Error represents a domain-specific error with an error code and optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new domain error with the specified code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string, cause error) *Error {
	return Wrap(ErrCodeConfig, message, cause)
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, cause error) *Error {
	return Wrap(ErrCodeValidation, message, cause)
}

// NewListError creates a new list loading error.
func NewListError(message string, cause error) *Error {
	return Wrap(ErrCodeList, message, cause)
}

// NewPacketError creates a new packet decoding error.
func NewPacketError(message string, cause error) *Error {
	return Wrap(ErrCodePacket, message, cause)
}

// NewUpstreamError creates a new upstream query error.
func NewUpstreamError(message string, cause error) *Error {
	return Wrap(ErrCodeUpstream, message, cause)
}

// NewCacheError creates a new cache error.
func NewCacheError(message string, cause error) *Error {
	return Wrap(ErrCodeCache, message, cause)
}

// NewNetworkError creates a new network configuration error.
func NewNetworkError(message string, cause error) *Error {
	return Wrap(ErrCodeNetwork, message, cause)
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, cause error) *Error {
	return Wrap(ErrCodeInternal, message, cause)
}
