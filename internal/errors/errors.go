package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Code is the machine readable identifier carried by an APIError.
type Code string

const (
	CodeInvalidRequest   Code = "INVALID_REQUEST"
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeUnsupportedMedia Code = "UNSUPPORTED_MEDIA_TYPE"
	CodeNotFound         Code = "NOT_FOUND"
)

var codeProblemTypes = map[Code]string{
	CodeInvalidRequest:   TypeValidation,
	CodeValidationFailed: TypeValidation,
	CodeUnsupportedMedia: TypeUnsupportedMedia,
	CodeNotFound:         TypeNotFound,
}

// ProblemType returns the problem type URI reported for the code
func (c Code) ProblemType() string {
	if t, ok := codeProblemTypes[c]; ok {
		return t
	}
	return TypeInternal
}

// APIError is a request level failure detected before the export engine runs:
// a malformed body, a failed field rule or an unknown artifact.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  Code        `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError describes one rejected field, addressed by its JSON path
// (for example "grid.page.group[0]").
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the Details payload of a VALIDATION_FAILED error
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func newAPIError(status int, code Code, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: status,
		ErrorCode:  code,
		Message:    message,
		Details:    details,
	}
}

// InvalidRequestWithError reports a body that could not be decoded
func InvalidRequestWithError(err error) *APIError {
	return newAPIError(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// NewValidationError reports a request rejected as a whole
func NewValidationError(message string) *APIError {
	return newAPIError(http.StatusBadRequest, CodeValidationFailed, message, nil)
}

// NewValidationErrors reports every rejected field at once
func NewValidationErrors(errs []ValidationError) *APIError {
	return newAPIError(http.StatusBadRequest, CodeValidationFailed, "Request validation failed",
		ValidationErrors{Errors: errs})
}

// InvalidField reports a single rejected field or path parameter
func InvalidField(field, message string) *APIError {
	return NewValidationErrors([]ValidationError{{Field: field, Message: message}})
}

// NotFoundError reports a missing resource such as an artifact
func NotFoundError(resource string) *APIError {
	return newAPIError(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// UnsupportedMediaType reports a request body in a content type the route
// does not accept.
func UnsupportedMediaType(got string, allowed []string) *APIError {
	return newAPIError(http.StatusUnsupportedMediaType, CodeUnsupportedMedia, "Unsupported content type",
		map[string]interface{}{
			"content_type": got,
			"allowed":      allowed,
		})
}
