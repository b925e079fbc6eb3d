package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/applydesk/internal/apperrors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// HTTPStatus returns the HTTP status code for an error code.
func HTTPStatus(code apperrors.Code) int {
	switch code {
	case apperrors.CodeValidation:
		return http.StatusBadRequest
	case apperrors.CodeInvalidTransition, apperrors.CodeAlreadyAssigned, apperrors.CodeConflict:
		return http.StatusConflict
	case apperrors.CodeNotAssignee, apperrors.CodeForbidden:
		return http.StatusForbidden
	case apperrors.CodeMissingPrerequisite:
		return http.StatusUnprocessableEntity
	case apperrors.CodeInsufficientCredit:
		return http.StatusPaymentRequired
	case apperrors.CodeUpstreamFailure:
		return http.StatusBadGateway
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// newErrorBody renders err for a client. Internal causes are not exposed.
func newErrorBody(err error) (int, errorBody) {
	code := apperrors.CodeOf(err)
	body := errorBody{Error: string(code), Message: "internal error"}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && code != apperrors.CodeInternal {
		body.Message = appErr.Message
		body.Field = appErr.Field
	}
	return HTTPStatus(code), body
}
