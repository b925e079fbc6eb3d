// Package apperrors defines the structured error taxonomy shared by every service.
// Each failure is reported with a distinguishable Code so callers and tests can
// assert on the specific kind and tell the human what to do next.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Code categorizes an application error.
type Code string

const (
	// CodeValidation indicates malformed input. Never mutates state.
	CodeValidation Code = "validation"
	// CodeInvalidTransition indicates a state change that is illegal from the current state.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeAlreadyAssigned indicates another agent holds the claim.
	CodeAlreadyAssigned Code = "already_assigned"
	// CodeNotAssignee indicates the caller does not hold the claim.
	CodeNotAssignee Code = "not_assignee"
	// CodeMissingPrerequisite indicates a required input (resume, description, proof) is absent.
	CodeMissingPrerequisite Code = "missing_prerequisite"
	// CodeInsufficientCredit indicates the owner's balance cannot cover the submission.
	CodeInsufficientCredit Code = "insufficient_credit"
	// CodeUpstreamFailure indicates the AI transformation errored or timed out. Retry-safe.
	CodeUpstreamFailure Code = "upstream_failure"
	// CodeNotFound indicates the resource does not exist or is not visible to the caller.
	CodeNotFound Code = "not_found"
	// CodeForbidden indicates the caller's role may not perform the operation.
	CodeForbidden Code = "forbidden"
	// CodeConflict indicates a uniqueness conflict in the store.
	CodeConflict Code = "conflict"
	// CodeInternal indicates an unexpected failure.
	CodeInternal Code = "internal"
)

// AppError is a structured application error with a code, message, and optional cause.
type AppError struct {
	Code    Code
	Message string
	// Field names the input or precondition at fault, when there is one.
	Field string
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error for a field.
func Validation(field, message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message, Field: field}
}

// InvalidTransition creates an invalid transition error.
func InvalidTransition(format string, args ...any) *AppError {
	return newf(CodeInvalidTransition, format, args...)
}

// AlreadyAssigned creates an already-assigned error.
func AlreadyAssigned(format string, args ...any) *AppError {
	return newf(CodeAlreadyAssigned, format, args...)
}

// NotAssignee creates a not-assignee error.
func NotAssignee(format string, args ...any) *AppError {
	return newf(CodeNotAssignee, format, args...)
}

// MissingPrerequisite creates a missing prerequisite error naming the absent input.
func MissingPrerequisite(field, message string) *AppError {
	return &AppError{Code: CodeMissingPrerequisite, Message: message, Field: field}
}

// InsufficientCredit creates an insufficient credit error.
func InsufficientCredit(format string, args ...any) *AppError {
	return newf(CodeInsufficientCredit, format, args...)
}

// UpstreamFailure wraps an AI provider error or timeout.
func UpstreamFailure(message string, cause error) *AppError {
	return &AppError{Code: CodeUpstreamFailure, Message: message, Cause: cause}
}

// NotFound creates a not found error.
func NotFound(format string, args ...any) *AppError {
	return newf(CodeNotFound, format, args...)
}

// Forbidden creates a forbidden error.
func Forbidden(format string, args ...any) *AppError {
	return newf(CodeForbidden, format, args...)
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *AppError {
	return newf(CodeConflict, format, args...)
}

// Internal wraps an unexpected error.
func Internal(message string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Cause: cause}
}

// CodeOf returns the code of the first AppError in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// FromValidator converts go-playground validator errors into a validation AppError
// naming the first offending field. Other errors pass through as validation failures.
func FromValidator(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &AppError{
			Code:    CodeValidation,
			Message: fmt.Sprintf("failed %q check", fe.Tag()),
			Field:   fe.Field(),
			Cause:   err,
		}
	}
	return &AppError{Code: CodeValidation, Message: "invalid input", Cause: err}
}
