package http

import (
	"fmt"
	"net/http"
)

// AppError is an error with a stable code and the HTTP status it maps to.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{}, 1)
	}
	e.Params[key] = value
	return e
}

// WithError records the cause; it is logged, never rendered.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func statusError(status int, code, format string, a []interface{}) *AppError {
	return NewAppError(code, "", fmt.Sprintf(format, a...), status)
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return statusError(http.StatusNotFound, "ERR_NOT_FOUND", format, a)
}

func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return statusError(http.StatusBadRequest, "ERR_BAD_REQUEST", format, a)
}

// UnavailableErrorf reports a feature whose backend is not configured.
func UnavailableErrorf(format string, a ...interface{}) *AppError {
	return statusError(http.StatusServiceUnavailable, "ERR_UNAVAILABLE", format, a)
}
