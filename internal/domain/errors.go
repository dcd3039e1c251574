// Package domain defines core types, interfaces, and errors for the RLS manager.
package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ServiceError is a classified failure reported by one of the cloud services.
// Code is the service-reported error name, Status the HTTP-style status it maps to.
type ServiceError struct {
	Service string // "s3", "glue" or "quicksight"
	Op      string
	Code    string
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s %s: %s: %s", e.Service, e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Service, e.Code, e.Message)
}

// IsNotFound reports whether the service said the resource does not exist.
func (e *ServiceError) IsNotFound() bool { return e.Status == http.StatusNotFound }

// IngestionError is a terminal ingestion job failure.
type IngestionError struct {
	IngestionID string
	Status      string
	ErrorType   string
	Message     string
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion %s %s (%s): %s", e.IngestionID, e.Status, e.ErrorType, e.Message)
}

// Type combines the job status with the service's own error type, e.g. "FAILED:ROW_SIZE_LIMIT_EXCEEDED".
func (e *IngestionError) Type() string {
	if e.ErrorType == "" {
		return e.Status
	}
	return e.Status + ":" + e.ErrorType
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// StatusForErrorName maps a service-reported error name to an HTTP-style status.
// Unrecognized names map to 500.
func StatusForErrorName(name string) int {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "accessdenied"), strings.Contains(n, "unauthorized"),
		strings.Contains(n, "forbidden"):
		return http.StatusForbidden
	case strings.Contains(n, "notfound"), strings.HasPrefix(n, "nosuch"):
		return http.StatusNotFound
	case strings.Contains(n, "throttl"), strings.Contains(n, "toomanyrequests"),
		n == "slowdown":
		return http.StatusTooManyRequests
	case strings.Contains(n, "conflict"), strings.Contains(n, "limitexceeded"),
		strings.Contains(n, "exists"), strings.Contains(n, "concurrentmodification"),
		strings.Contains(n, "preconditionnotmet"):
		return http.StatusConflict
	case strings.Contains(n, "invalid"), strings.Contains(n, "validation"),
		strings.Contains(n, "unsupported"), strings.Contains(n, "badrequest"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Classify converts any error into an HTTP-style status and an error type name.
func Classify(err error) (status int, errorType string) {
	var notFound *NotFoundError
	var accessDenied *AccessDeniedError
	var validation *ValidationError
	var conflict *ConflictError
	var svc *ServiceError
	var ingestion *IngestionError

	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.As(err, &svc):
		return svc.Status, svc.Code
	case errors.As(err, &ingestion):
		return http.StatusInternalServerError, ingestion.Type()
	case errors.As(err, &validation):
		return http.StatusBadRequest, "ValidationError"
	case errors.As(err, &notFound):
		return http.StatusNotFound, "NotFoundError"
	case errors.As(err, &accessDenied):
		return http.StatusForbidden, "AccessDeniedError"
	case errors.As(err, &conflict):
		return http.StatusConflict, "ConflictError"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}

// IsNotFound reports whether err is a store or service not-found error.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	var svc *ServiceError
	return errors.As(err, &svc) && svc.IsNotFound()
}
