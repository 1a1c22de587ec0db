package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeNotFound represents an absent workspace, post, target or comment
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeInvalidParent represents a reply whose parent is on another target or is itself a reply
	ErrorTypeInvalidParent ErrorType = "invalid_parent"
	// ErrorTypeForbidden represents an actor without rights on the resource
	ErrorTypeForbidden ErrorType = "forbidden"
	// ErrorTypeConflict represents a duplicate that is not absorbed idempotently
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeUnavailable represents a storage failure
	ErrorTypeUnavailable ErrorType = "unavailable"
	// ErrorTypeValidation represents malformed input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Kind returns the error category
func (e *BaseError) Kind() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// ErrNotFound is returned when an entity does not exist
type ErrNotFound struct {
	*BaseError
	Entity string
	ID     string
}

func NewNotFound(entity, id string) *ErrNotFound {
	return &ErrNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("%s not found: %s", entity, id), nil),
		Entity:    entity,
		ID:        id,
	}
}

// ErrInvalidParent is returned when a reply references an unusable parent comment
type ErrInvalidParent struct {
	*BaseError
	ParentID string
	Reason   string
}

func NewInvalidParent(parentID, reason string) *ErrInvalidParent {
	return &ErrInvalidParent{
		BaseError: NewBaseError(ErrorTypeInvalidParent, fmt.Sprintf("invalid parent comment %s: %s", parentID, reason), nil),
		ParentID:  parentID,
		Reason:    reason,
	}
}

// ErrForbidden is returned when the actor may not perform the operation
type ErrForbidden struct {
	*BaseError
	Action string
}

func NewForbidden(action, reason string) *ErrForbidden {
	return &ErrForbidden{
		BaseError: NewBaseError(ErrorTypeForbidden, fmt.Sprintf("%s: %s", action, reason), nil),
		Action:    action,
	}
}

// ErrConflict is returned when a unique relation already exists
type ErrConflict struct {
	*BaseError
	Entity string
	ID     string
}

func NewConflict(entity, id string) *ErrConflict {
	return &ErrConflict{
		BaseError: NewBaseError(ErrorTypeConflict, fmt.Sprintf("%s already exists: %s", entity, id), nil),
		Entity:    entity,
		ID:        id,
	}
}

// ErrUnavailable is returned when the backing store cannot serve a request
type ErrUnavailable struct {
	*BaseError
	Operation string
}

func NewUnavailable(operation string, err error) *ErrUnavailable {
	return &ErrUnavailable{
		BaseError: NewBaseError(ErrorTypeUnavailable, fmt.Sprintf("storage unavailable during %s", operation), err),
		Operation: operation,
	}
}

// ErrValidation is returned when input fails validation
type ErrValidation struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidation(field, reason string) *ErrValidation {
	return &ErrValidation{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type kinded interface {
	Kind() ErrorType
}

// TypeOf returns the category of the first categorized error in the chain
func TypeOf(err error) (ErrorType, bool) {
	var k kinded
	if stderrors.As(err, &k) {
		return k.Kind(), true
	}
	return "", false
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	t, ok := TypeOf(err)
	return ok && t == errType
}

// IsNotFound reports whether err is a NotFound error
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}

// IsUnavailable reports whether err is a storage failure
func IsUnavailable(err error) bool {
	return IsErrorType(err, ErrorTypeUnavailable)
}
