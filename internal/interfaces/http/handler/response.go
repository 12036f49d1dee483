package handler

import "github.com/workshop/backend/internal/interfaces/http/dto"

// Envelopes below only describe responses in the OpenAPI document. Handlers
// write dto.Response through BaseHandler.

// APIResponse is a successful response carrying T
type APIResponse[T any] struct {
	Success bool `json:"success" example:"true"`
	Data    T    `json:"data"`
}

// PagedResponse is a page of T with its position in the full result
type PagedResponse[T any] struct {
	Success bool     `json:"success" example:"true"`
	Data    []T      `json:"data"`
	Meta    dto.Meta `json:"meta"`
}

// ErrorResponse is every non-2xx body. Fields lists the rejected inputs of
// an ERR_VALIDATION response.
type ErrorResponse struct {
	Success bool          `json:"success" example:"false"`
	Error   dto.ErrorInfo `json:"error"`
}

// RequeuedEntries reports how many dead outbox entries went back to pending
type RequeuedEntries struct {
	Requeued int64 `json:"requeued" example:"3"`
}
