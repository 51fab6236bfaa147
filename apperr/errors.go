// Package apperr defines the error taxonomy shared by services and handlers.
// Handlers map these types to HTTP statuses; services never return raw
// storage errors across the package boundary.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCursor is returned for a malformed or tampered pagination
// cursor. Listings never fall back to the first page silently.
var ErrInvalidCursor = errors.New("invalid pagination cursor")

// Failure kinds carried by FieldError.
const (
	KindInvalid  = "invalid"  // field-level or structural constraint
	KindConflict = "conflict" // uniqueness scope violation
)

// FieldError locates a single validation failure inside a batch: the index
// of the tree in the request, the node path within that tree
// (e.g. "country/states[0]/cities[2]"), the offending field, the failure
// kind and the reason.
type FieldError struct {
	Index  int    `json:"index"`
	Path   string `json:"path"`
	Field  string `json:"field"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("[%d] %s.%s (%s): %s", e.Index, e.Path, e.Field, e.Kind, e.Reason)
}

// ValidationError aggregates every node-level failure found in a batch so a
// caller can correlate each one to its originating tree.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.String())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a failure and returns the receiver for chaining.
func (e *ValidationError) Add(index int, path, field, kind, reason string) *ValidationError {
	e.Errors = append(e.Errors, FieldError{Index: index, Path: path, Field: field, Kind: kind, Reason: reason})
	return e
}

// HasErrors reports whether any failure was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ConflictError reports a uniqueness violation, either detected up front
// against the uniqueness scope or surfaced by the store at commit time.
type ConflictError struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (e *ConflictError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s already exists", e.Field)
	}
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

// AuthError is an authentication failure. Reason is for internal logging
// only; callers always see the same generic message.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return e.Reason
}

// Unauthenticated constructs an AuthError with an internal reason.
func Unauthenticated(reason string) *AuthError {
	return &AuthError{Reason: reason}
}

// ForbiddenError is an authorization failure on an owned resource.
type ForbiddenError struct {
	Resource string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("access to %s denied", e.Resource)
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// StoreError wraps a persistence failure. Write errors after validation has
// passed are fatal for the request but never corrupt invariants; callers may
// treat them as retryable.
type StoreError struct {
	Op    string // "read" or "write"
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// StoreRead wraps err as a read-side store failure.
func StoreRead(err error) *StoreError {
	return &StoreError{Op: "read", Cause: err}
}

// StoreWrite wraps err as a write-side store failure.
func StoreWrite(err error) *StoreError {
	return &StoreError{Op: "write", Cause: err}
}
