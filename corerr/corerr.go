// Package corerr defines the error taxonomy shared by every voxelcore
// component: capacity limits, device/mapping failures, protocol
// violations from callers, transient conditions that are retried once,
// and fatal construction-time misconfiguration.
package corerr

import (
	"errors"
	"fmt"
)

// Kind classifies a CoreError. Kinds are coarse on purpose: callers
// branch on Kind, not on specific messages.
type Kind int

const (
	// Capacity: a configured size exceeds a device or buffer limit, or a
	// fixed-size output (mesh buffer, slot table) has overflowed.
	Capacity Kind = iota
	// Mapping: device loss, an uncaptured validation error, or a staging
	// buffer failed to map.
	Mapping
	// Protocol: the caller violated a documented contract (wrong-length
	// array, truncated parameter block, unregistered id).
	Protocol
	// Transient: a condition expected to clear on retry (eviction racing
	// an in-flight read-back). Nothing in this module retries a
	// Transient error; it is returned to the caller as is.
	Transient
	// Fatal: construction-time misconfiguration that cannot be
	// represented as a successful object.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Capacity:
		return "capacity"
	case Mapping:
		return "mapping"
	case Protocol:
		return "protocol"
	case Transient:
		return "transient"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// CoreError is the concrete error type returned by voxelcore packages.
type CoreError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Cause }

// Is reports whether target is a CoreError with the same Kind, so callers
// can write errors.Is(err, corerr.Capacity) style checks via KindOf instead,
// or match a sentinel produced by the same constructor.
func (e *CoreError) Is(target error) bool {
	var other *CoreError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func newErr(kind Kind, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, cause error, format string, args ...any) *CoreError {
	return &CoreError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Capacityf builds a Capacity-kind error.
func Capacityf(format string, args ...any) *CoreError { return newErr(Capacity, format, args...) }

// Mappingf builds a Mapping-kind error.
func Mappingf(format string, args ...any) *CoreError { return newErr(Mapping, format, args...) }

// WrapMapping builds a Mapping-kind error wrapping a lower-level cause.
func WrapMapping(cause error, format string, args ...any) *CoreError {
	return wrapErr(Mapping, cause, format, args...)
}

// Protocolf builds a Protocol-kind error.
func Protocolf(format string, args ...any) *CoreError { return newErr(Protocol, format, args...) }

// Transientf builds a Transient-kind error.
func Transientf(format string, args ...any) *CoreError { return newErr(Transient, format, args...) }

// Fatalf builds a Fatal-kind error.
func Fatalf(format string, args ...any) *CoreError { return newErr(Fatal, format, args...) }

// KindOf extracts the Kind from err if it is (or wraps) a *CoreError.
// The second return is false for errors outside this taxonomy.
func KindOf(err error) (Kind, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}
