package models

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Transports map these to status codes; Kind() is what clients
// see as error_type.

// InputError rejects a malformed or incomplete request.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }
func (e *InputError) Kind() string  { return "InputError" }

func NewInputError(format string, args ...interface{}) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientDataError means the series table came out shorter than required.
type InsufficientDataError struct {
	Rows     int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for analysis: %d rows, need at least %d", e.Rows, e.Required)
}
func (e *InsufficientDataError) Kind() string { return "InsufficientDataError" }

// ProviderTimeoutError is raised by a history provider that did not answer in
// time. Always recovered by falling back to synthesis.
type ProviderTimeoutError struct {
	Symbol  string
	Timeout time.Duration
	Err     error
}

func (e *ProviderTimeoutError) Error() string {
	return fmt.Sprintf("history provider timed out after %s for %s: %v", e.Timeout, e.Symbol, e.Err)
}
func (e *ProviderTimeoutError) Unwrap() error { return e.Err }
func (e *ProviderTimeoutError) Kind() string  { return "ProviderTimeoutError" }

// PairComputationError wraps a numerical failure for one ordered pair or one
// classifier target. Always recovered by skipping.
type PairComputationError struct {
	Source string
	Target string
	Err    error
}

func (e *PairComputationError) Error() string {
	return fmt.Sprintf("pair %s->%s: %v", e.Source, e.Target, e.Err)
}
func (e *PairComputationError) Unwrap() error { return e.Err }
func (e *PairComputationError) Kind() string  { return "PairComputationError" }

// CacheCapacityInvariantViolation signals a bug: the cache grew past capacity
// even after eviction.
type CacheCapacityInvariantViolation struct {
	Size     int
	Capacity int
}

func (e *CacheCapacityInvariantViolation) Error() string {
	return fmt.Sprintf("cache size %d exceeds capacity %d after eviction", e.Size, e.Capacity)
}
func (e *CacheCapacityInvariantViolation) Kind() string { return "CacheCapacityInvariantViolation" }

// ErrNoHistory is returned by history providers that have nothing usable for
// a symbol. Callers fall back to the next provider.
var ErrNoHistory = errors.New("no usable history")

// KindOf returns the kind name of err, or "InternalError" for anything that is
// not part of the taxonomy.
func KindOf(err error) string {
	var k interface{ Kind() string }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return "InternalError"
}
