package core

import (
	"errors"
	"fmt"
)

// IllegalArgumentError reports a caller-supplied argument that violates its shape contract.
// It is always returned before any hook or adapter call runs.
type IllegalArgumentError struct {
	Message string
	// Details optionally describes the offending argument (e.g. actual vs expected type).
	Details map[string]any
}

func (e *IllegalArgumentError) Error() string { return e.Message }

// RuntimeError reports a structurally valid call that cannot be served,
// such as an unregistered resource name or an unknown adapter.
type RuntimeError struct {
	Message string
	// Err optionally carries a sentinel such as ErrNotInStore.
	Err error
}

func (e *RuntimeError) Error() string { return e.Message }

func (e *RuntimeError) Unwrap() error { return e.Err }

// UnhandledError wraps an unexpected internal fault so callers always receive a typed error.
type UnhandledError struct {
	Err error
}

func (e *UnhandledError) Error() string {
	if e.Err == nil {
		return "unhandled error"
	}
	return "unhandled error: " + e.Err.Error()
}

func (e *UnhandledError) Unwrap() error { return e.Err }

// ValidationError is returned when the validate stage of a pipeline rejects the payload.
type ValidationError struct {
	Resource string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %v", e.Resource, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Common errors.
var (
	ErrNotInStore = errors.New("item is not in the data store")
)

func illegalArgument(prefix, msg string, details map[string]any) error {
	return &IllegalArgumentError{Message: prefix + msg, Details: details}
}

func notRegistered(prefix, resourceName string) error {
	return &RuntimeError{Message: prefix + resourceName + " is not a registered resource!"}
}

// unhandled wraps err unless it already belongs to the error taxonomy.
func unhandled(err error) error {
	if err == nil {
		return nil
	}
	var (
		ia *IllegalArgumentError
		rt *RuntimeError
		uh *UnhandledError
	)
	if errors.As(err, &ia) || errors.As(err, &rt) || errors.As(err, &uh) {
		return err
	}
	return &UnhandledError{Err: err}
}

// IsIllegalArgument reports whether err is (or wraps) an IllegalArgumentError.
func IsIllegalArgument(err error) bool {
	var target *IllegalArgumentError
	return errors.As(err, &target)
}

// IsRuntime reports whether err is (or wraps) a RuntimeError.
func IsRuntime(err error) bool {
	var target *RuntimeError
	return errors.As(err, &target)
}

// IsUnhandled reports whether err is (or wraps) an UnhandledError.
func IsUnhandled(err error) bool {
	var target *UnhandledError
	return errors.As(err, &target)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// asUnhandled classifies any caching-stage failure as an UnhandledError.
func asUnhandled(err error) error {
	var uh *UnhandledError
	if errors.As(err, &uh) {
		return err
	}
	return &UnhandledError{Err: err}
}
