// Package domain defines the semantic model, the query shape, and the errors
// shared by the compiler, the resolution pipeline and the surrounding services.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input. It is always raised before any
// engine round-trip.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate schema name in the registry).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// UnknownMemberError indicates a query member that does not resolve to a
// measure or dimension of any supplied schema. It unwraps to a ValidationError.
type UnknownMemberError struct {
	Member string
	Kind   string // "measure", "dimension", "filter" or "order"
}

func (e *UnknownMemberError) Error() string {
	return fmt.Sprintf("unknown %s member %q", e.Kind, e.Member)
}

func (e *UnknownMemberError) Unwrap() error {
	return &ValidationError{Message: e.Error()}
}

// CompilationError indicates that the engine rejected the generated AST.
// AST holds the exact payload that was submitted.
type CompilationError struct {
	AST     []byte
	Message string
}

func (e *CompilationError) Error() string {
	return "compilation failed: " + e.Message
}

// ResolutionConfigError indicates a resolution config that does not match
// the base query or its lookup schemas.
type ResolutionConfigError struct {
	Column  string
	Message string
}

func (e *ResolutionConfigError) Error() string {
	if e.Column == "" {
		return "resolution config: " + e.Message
	}
	return fmt.Sprintf("resolution config for %q: %s", e.Column, e.Message)
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrResolutionConfig creates a ResolutionConfigError for a column.
func ErrResolutionConfig(column, format string, args ...interface{}) *ResolutionConfigError {
	return &ResolutionConfigError{Column: column, Message: fmt.Sprintf(format, args...)}
}
