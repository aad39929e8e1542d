package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ErrNotAuthenticated is returned by components that need a session when
// none is installed.
var ErrNotAuthenticated = errors.New("not authenticated")

type ErrorKind int

const (
	// KindNotAuthenticated means no verified session exists
	KindNotAuthenticated ErrorKind = iota
	// KindNoActiveDevice means no device could be reconciled
	KindNoActiveDevice
	// KindUnauthorized means the vendor rejected the access token
	KindUnauthorized
	// KindVendorRestriction covers premium-only, rate limits and unsupported content
	KindVendorRestriction
	// KindTransientNetwork covers connection-class failures
	KindTransientNetwork
	// KindUnexpected is everything else
	KindUnexpected
	// KindInvalidInput is a request rejected before reaching the vendor
	KindInvalidInput
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindNoActiveDevice:
		return "no_active_device"
	case KindUnauthorized:
		return "unauthorized"
	case KindVendorRestriction:
		return "vendor_restriction"
	case KindTransientNetwork:
		return "transient_network"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unexpected"
	}
}

// Error is the failure half of a Result. Message is safe to announce.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Result carries either a value or an Error, never both.
type Result[T any] struct {
	Value T
	Err   *Error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Fail[T any](err *Error) Result[T] {
	return Result[T]{Err: err}
}

// Failed is the only success/failure discriminator callers should use.
func (r Result[T]) Failed() bool {
	return r.Err != nil
}

// Message returns the announcement text of a failed result, or "" on success.
func (r Result[T]) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Message
}

// FailAs rewraps a failed result of one payload type as another.
func FailAs[T, U any](r Result[U]) Result[T] {
	return Result[T]{Err: r.Err}
}

// Invalid builds a KindInvalidInput error carrying an announceable message.
func Invalid(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// VendorError is a non-2xx answer from the Web API.
type VendorError struct {
	Status  int
	Message string
	Reason  string
}

func (e *VendorError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("spotify: %d %s (%s)", e.Status, e.Message, e.Reason)
	}
	return fmt.Sprintf("spotify: %d %s", e.Status, e.Message)
}

// Reasons the player endpoints attach to 403/404 answers.
const (
	ReasonPremiumRequired = "PREMIUM_REQUIRED"
	ReasonNoActiveDevice  = "NO_ACTIVE_DEVICE"
	ReasonUnknown         = "UNKNOWN"
)

// ClassifyError maps a vendor or transport error onto the taxonomy.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindUnexpected
	}

	if errors.Is(err, ErrNotAuthenticated) {
		return KindNotAuthenticated
	}

	var ve *VendorError
	if errors.As(err, &ve) {
		return classifyVendor(ve)
	}

	if IsConnectionError(err) {
		return KindTransientNetwork
	}

	return KindUnexpected
}

func classifyVendor(ve *VendorError) ErrorKind {
	switch ve.Status {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusBadRequest:
		return KindVendorRestriction
	case http.StatusNotFound:
		if ve.Reason == ReasonNoActiveDevice || strings.Contains(strings.ToLower(ve.Message), "no active device") {
			return KindNoActiveDevice
		}
		return KindVendorRestriction
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindTransientNetwork
	default:
		return KindUnexpected
	}
}

// IsConnectionError reports whether err is a connection-class failure worth a
// single retry: timeouts, resets, refused connections and truncated bodies.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
