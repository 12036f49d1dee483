package shared

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes used across the workshop domain
const (
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodePreconditionFailed     = "PRECONDITION_FAILED"
	CodeDuplicate              = "DUPLICATE"
	CodeAlreadyClosed          = "ALREADY_CLOSED"
	CodeBlocked                = "BLOCKED"
	CodeNotFound               = "NOT_FOUND"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any domain error carrying the same code
func (e *DomainError) Is(target error) bool {
	other, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrentModification, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Operator identity is required")
	ErrForbidden           = NewDomainError(CodeForbidden, "Operator role is not allowed to perform this action")
)

// NewValidationError reports malformed or missing input
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewFieldValidationError reports a single invalid field
func NewFieldValidationError(field, message string) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf("%s: %s", field, message)).WithDetail("field", field)
}

// NewInvalidTransitionError reports a state graph violation
func NewInvalidTransitionError(entity, from, to string) *DomainError {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("%s cannot transition from %s to %s", entity, from, to)).
		WithDetail("from", from).
		WithDetail("to", to)
}

// NewPreconditionError reports a valid request whose gating condition is unmet
func NewPreconditionError(message string) *DomainError {
	return NewDomainError(CodePreconditionFailed, message)
}

// NewDuplicateError reports an attempt to re-create a singleton entity
func NewDuplicateError(entity, message string) *DomainError {
	return NewDomainError(CodeDuplicate, message).WithDetail("entity", entity)
}

// NewAlreadyClosedError reports a closing idempotency violation
func NewAlreadyClosedError(period string) *DomainError {
	return NewDomainError(CodeAlreadyClosed, fmt.Sprintf("period %s is already closed", period)).
		WithDetail("period", period)
}

// NewBlockedError reports a closing attempted before it is eligible
func NewBlockedError(message string, missing ...string) *DomainError {
	err := NewDomainError(CodeBlocked, message)
	if len(missing) > 0 {
		err = err.WithDetail("missing", missing)
		err.Message = fmt.Sprintf("%s (missing: %s)", message, strings.Join(missing, ", "))
	}
	return err
}

// NewNotFoundError reports a missing entity
func NewNotFoundError(entity string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", entity)).WithDetail("entity", entity)
}

// ErrorCode returns the domain code carried by err, or an empty string
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func hasCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsInvalidTransition reports whether err is an InvalidTransitionError
func IsInvalidTransition(err error) bool { return hasCode(err, CodeInvalidTransition) }

// IsPrecondition reports whether err is a PreconditionError
func IsPrecondition(err error) bool { return hasCode(err, CodePreconditionFailed) }

// IsDuplicate reports whether err is a DuplicateError
func IsDuplicate(err error) bool { return hasCode(err, CodeDuplicate) }

// IsAlreadyClosed reports whether err is an AlreadyClosedError
func IsAlreadyClosed(err error) bool { return hasCode(err, CodeAlreadyClosed) }

// IsBlocked reports whether err is a BlockedError
func IsBlocked(err error) bool { return hasCode(err, CodeBlocked) }

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// IsDomainError reports whether err carries any domain code
func IsDomainError(err error) bool { return ErrorCode(err) != "" }
