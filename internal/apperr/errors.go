// Package apperr defines the machine-readable error taxonomy surfaced to API callers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInactive          = "INACTIVE_RESOURCE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInternal          = "INTERNAL_ERROR"
)

// AppError carries a stable code, a human message and the HTTP status it maps to.
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail adds a single detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap attaches the underlying cause
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

func New(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func Unauthenticated(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return New(CodeUnauthenticated, message, http.StatusUnauthorized)
}

func Forbidden(message string) *AppError {
	if message == "" {
		message = "access to this store is not allowed"
	}
	return New(CodeForbidden, message, http.StatusForbidden)
}

func NotFound(resource string, id int64) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s %d not found", resource, id), http.StatusNotFound).
		WithDetail("resource", resource).
		WithDetail("id", fmt.Sprint(id))
}

func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func ValidationFields(message string, fields map[string]string) *AppError {
	e := Validation(message)
	e.Details = fields
	return e
}

func InsufficientStock(product string, available, requested int) *AppError {
	return New(CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for %s: available %d, requested %d", product, available, requested),
		http.StatusConflict).
		WithDetail("available", fmt.Sprint(available)).
		WithDetail("requested", fmt.Sprint(requested))
}

func Inactive(resource, name string) *AppError {
	return New(CodeInactive, fmt.Sprintf("%s %s is inactive", resource, name), http.StatusUnprocessableEntity)
}

func InvalidTransition(from, to string) *AppError {
	return New(CodeInvalidTransition, fmt.Sprintf("cannot move sale from %s to %s", from, to), http.StatusConflict).
		WithDetail("from", from).
		WithDetail("to", to)
}

func Internal(err error) *AppError {
	return New(CodeInternal, "an internal error occurred", http.StatusInternalServerError).Wrap(err)
}

// As reports whether err is (or wraps) an AppError.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError converts any error to an AppError; unknown errors become internal.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Internal(err)
}

// CodeOf returns the code of err, or "" when err is nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return FromError(err).Code
}
