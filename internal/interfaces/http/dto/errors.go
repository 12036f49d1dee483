package dto

import (
	"net/http"

	"github.com/workshop/backend/internal/domain/shared"
)

// Error codes returned in the response envelope. Format: ERR_<DESCRIPTION>
const (
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation          = "ERR_VALIDATION"
	ErrCodeInvalidTransition   = "ERR_INVALID_TRANSITION"
	ErrCodePreconditionFailed  = "ERR_PRECONDITION_FAILED"
	ErrCodeDuplicate           = "ERR_DUPLICATE"
	ErrCodeAlreadyClosed       = "ERR_ALREADY_CLOSED"
	ErrCodeBlocked             = "ERR_BLOCKED"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENT_MODIFICATION"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeInvalidTransition:   http.StatusConflict,
	ErrCodePreconditionFailed:  http.StatusUnprocessableEntity,
	ErrCodeDuplicate:           http.StatusConflict,
	ErrCodeAlreadyClosed:       http.StatusConflict,
	ErrCodeBlocked:             http.StatusLocked,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodes maps shared.DomainError codes to response codes
var domainErrorCodes = map[string]string{
	shared.CodeValidation:             ErrCodeValidation,
	shared.CodeInvalidTransition:      ErrCodeInvalidTransition,
	shared.CodePreconditionFailed:     ErrCodePreconditionFailed,
	shared.CodeDuplicate:              ErrCodeDuplicate,
	shared.CodeAlreadyClosed:          ErrCodeAlreadyClosed,
	shared.CodeBlocked:                ErrCodeBlocked,
	shared.CodeNotFound:               ErrCodeNotFound,
	shared.CodeUnauthorized:           ErrCodeUnauthorized,
	shared.CodeForbidden:              ErrCodeForbidden,
	shared.CodeConcurrentModification: ErrCodeConcurrencyConflict,
}

// NormalizeErrorCode converts a domain error code to its ERR_* form.
// Unknown codes map to ERR_INTERNAL.
func NormalizeErrorCode(code string) string {
	if mapped, ok := domainErrorCodes[code]; ok {
		return mapped
	}
	if _, ok := ErrorCodeHTTPStatus[code]; ok {
		return code
	}
	return ErrCodeInternal
}
