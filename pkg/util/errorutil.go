package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes shared by services and the HTTP boundary.
const (
	CodeValidation           = "VALIDATION_FAILED"
	CodeWeakPassword         = "WEAK_PASSWORD"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeMissingAuth          = "MISSING_AUTH"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeEmailNotConfirmed    = "EMAIL_NOT_CONFIRMED"
	CodeRecoveryRequired     = "RECOVERY_REQUIRED"
	CodeForbidden            = "FORBIDDEN"
	CodeNotAuthorizedForRole = "NOT_AUTHORIZED_FOR_ROLE"
	CodeConflict             = "CONFLICT"
	CodeDuplicateEmail       = "DUPLICATE_EMAIL"
	CodeDuplicatePhone       = "DUPLICATE_PHONE"
	CodeInvalidAssignee      = "INVALID_ASSIGNEE"
	CodeTooManyRequests      = "TOO_MANY_REQUESTS"
	CodeInternal             = "INTERNAL_ERROR"
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

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewWeakPassword(message string) error {
	return NewDomainError(CodeWeakPassword, message, http.StatusBadRequest, nil)
}

func NewInvalidAssignee(staffID string) error {
	return NewDomainError(CodeInvalidAssignee, "assignee must be an active staff member", http.StatusBadRequest,
		map[string]any{"assigned_to": staffID})
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

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewMissingAuth() error {
	return NewDomainError(CodeMissingAuth, "missing authorization header", http.StatusUnauthorized, nil)
}

func NewInvalidToken() error {
	return NewDomainError(CodeInvalidToken, "invalid token", http.StatusUnauthorized, nil)
}

func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidCredentials, "invalid credentials", http.StatusUnauthorized, nil)
}

func NewEmailNotConfirmed() error {
	return NewDomainError(CodeEmailNotConfirmed, "email not confirmed", http.StatusUnauthorized, nil)
}

func NewRecoveryRequired() error {
	return NewDomainError(CodeRecoveryRequired, "password recovery session required", http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewNotAuthorizedForRole(role string) error {
	return NewDomainError(CodeNotAuthorizedForRole, "account is not authorized for this area", http.StatusForbidden,
		map[string]any{"role": role})
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewDuplicateEmail() error {
	return NewDomainError(CodeDuplicateEmail, "email already registered", http.StatusConflict, nil)
}

func NewDuplicatePhone() error {
	return NewDomainError(CodeDuplicatePhone, "phone already registered", http.StatusConflict, nil)
}

func NewTooManyRequests() error {
	return NewDomainError(CodeTooManyRequests, "too many requests", http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
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
	return NewInternalError(err).(*DomainError)
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
