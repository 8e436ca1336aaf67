// Package types holds the wire shapes shared by every handler.
package types

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func NewSuccessResponse(data interface{}) *APIResponse {
	return &APIResponse{Success: true, Data: data}
}

func NewErrorResponse(code, message string) *APIResponse {
	return NewErrorResponseWithDetails(code, message, nil)
}

// NewErrorResponseWithDetails attaches machine-readable context, e.g. the
// offending field of a rejected listing payload.
func NewErrorResponseWithDetails(code, message string, details map[string]interface{}) *APIResponse {
	return &APIResponse{
		Error: &APIError{Code: code, Message: message, Details: details},
	}
}

// Request problems.
const (
	ErrorCodeValidation     = "VALIDATION_ERROR"
	ErrorCodeInvalidRequest = "INVALID_REQUEST"
	ErrorCodeTooLarge       = "PAYLOAD_TOO_LARGE"
)

// Caller identity and ownership.
const (
	ErrorCodeUnauthorized = "UNAUTHORIZED"
	ErrorCodeInvalidToken = "INVALID_TOKEN"
	ErrorCodeForbidden    = "FORBIDDEN"
)

// Resource state and server side failures.
const (
	ErrorCodeNotFound   = "NOT_FOUND"
	ErrorCodeConflict   = "CONFLICT"
	ErrorCodeInternal   = "INTERNAL_ERROR"
	ErrorCodeBadGateway = "BAD_GATEWAY"
)
