package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeUpstream   ErrorType = "UPSTREAM_UNAVAILABLE"
	ErrorTypeParse      ErrorType = "PARSE_ERROR"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeConflict   ErrorType = "CONFLICT_ERROR"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
)

// AppError represents a structured error for the application
type AppError struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"statusCode"`
	ErrorCode     string    `json:"errorCode"`
	IsOperational bool      `json:"isOperational"`
	Recovery      string    `json:"recoverySuggestion,omitempty"`
	// Raw holds the unparseable model output for PARSE_ERROR so the UI can show it.
	Raw string `json:"raw,omitempty"`
	Err error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// RecoverySuggestion returns the suggestion on how to recover from the error
func (e *AppError) RecoverySuggestion() string {
	return e.Recovery
}

// NewValidationError creates a new validation error (400)
func NewValidationError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeValidation,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeNotFound,
		Message:       message,
		StatusCode:    http.StatusNotFound,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewConflictError creates a new conflict error (409)
func NewConflictError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeConflict,
		Message:       message,
		StatusCode:    http.StatusConflict,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewUpstreamError creates a new upstream error (502). The request is not retried.
func NewUpstreamError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeUpstream,
		Message:       message,
		StatusCode:    http.StatusBadGateway,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "The AI service is unavailable right now. Try again in a moment.",
		Err:           err,
	}
}

// NewParseError creates a new parse error (422) carrying the raw model output.
func NewParseError(message string, errorCode string, raw string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeParse,
		Message:       message,
		StatusCode:    http.StatusUnprocessableEntity,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Try a clearer photo of the menu.",
		Raw:           raw,
		Err:           err,
	}
}

// NewInternalError creates a new internal error (500)
func NewInternalError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeInternal,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: false,
		Err:           err,
	}
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// WriteJSON renders err as a JSON response. Non-AppErrors become INTERNAL_ERROR.
func WriteJSON(w http.ResponseWriter, err error) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = NewInternalError("internal server error", "INTERNAL", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	json.NewEncoder(w).Encode(appErr)
}
