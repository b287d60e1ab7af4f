package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/zalepa/evpop/dashboard"
	"github.com/zalepa/evpop/grid"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// FieldError is one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func newAPIError(status int, code, message string, details any) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: message, Details: details}
}

func errInvalidRequest(err error) *APIError {
	return newAPIError(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

func errNotFound(resource string) *APIError {
	return newAPIError(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("%s not found", resource), resource)
}

func errValidation(err error) *APIError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errInvalidRequest(err)
	}
	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed %q validation (value %v)", fe.Tag(), fe.Value()),
		}
	}
	return newAPIError(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", fields)
}

// toAPIError maps domain errors onto HTTP responses.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, dashboard.ErrNotLoaded):
		return newAPIError(http.StatusServiceUnavailable, "DATA_NOT_LOADED", "Dataset is not loaded", err.Error())
	case errors.Is(err, dashboard.ErrBadEvent), errors.Is(err, grid.ErrUnknownColumn):
		return newAPIError(http.StatusUnprocessableEntity, "INVALID_EVENT", "Event could not be applied", err.Error())
	}
	return newAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error", nil)
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	_ = render.Render(w, r, toAPIError(err))
}
