package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error kinds surfaced by the help desk core.
const (
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeInsufficientRole   = "INSUFFICIENT_ROLE"
	CodeCrossTenantAccess  = "CROSS_TENANT_ACCESS"
	CodeNotOwner           = "NOT_OWNER"
	CodeProtectedAccount   = "PROTECTED_ACCOUNT"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidStatus      = "INVALID_STATUS"
	CodeInvalidAssignee    = "INVALID_ASSIGNEE"
	CodeInvalidEnumValue   = "INVALID_ENUM_VALUE"
	CodeQuotaExceeded      = "QUOTA_EXCEEDED"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"

	CodeValidationFailed = "VALIDATION_FAILED"
	CodeConflict         = "CONFLICT"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may repeat the operation unchanged.
func (e *DomainError) Retryable() bool {
	return e.Code == CodeStorageUnavailable
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

func NewInsufficientRole(message string) error {
	return NewDomainError(CodeInsufficientRole, message, http.StatusForbidden, nil)
}

func NewCrossTenantAccess(resource string) error {
	return NewDomainError(CodeCrossTenantAccess, fmt.Sprintf("%s belongs to another organization", resource), http.StatusForbidden, nil)
}

func NewNotOwner(resource string) error {
	return NewDomainError(CodeNotOwner, fmt.Sprintf("only the creator may modify this %s", resource), http.StatusForbidden, nil)
}

func NewProtectedAccount(message string) error {
	return NewDomainError(CodeProtectedAccount, message, http.StatusConflict, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewInvalidStatus(value string) error {
	return NewDomainError(CodeInvalidStatus, fmt.Sprintf("invalid ticket status %q", value), http.StatusUnprocessableEntity,
		map[string]any{"status": value})
}

func NewInvalidAssignee(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidAssignee, message, http.StatusUnprocessableEntity, details)
}

func NewInvalidEnumValue(field, value string, allowed []string) error {
	return NewDomainError(CodeInvalidEnumValue, fmt.Sprintf("invalid value %q for %s", value, field), http.StatusBadRequest,
		map[string]any{"field": field, "allowed": allowed})
}

func NewQuotaExceeded(limit, current int) error {
	return NewDomainError(CodeQuotaExceeded, "user limit of the current plan reached", http.StatusPaymentRequired,
		map[string]any{"max_users": limit, "active_users": current})
}

func NewStorageUnavailable(err error) error {
	return &DomainError{
		Code:       CodeStorageUnavailable,
		Message:    "storage temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewRateLimited(message string) error {
	return NewDomainError(CodeRateLimited, message, http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsKind reports whether err carries a DomainError with the given code.
func IsKind(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewStorageUnavailable(err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
