package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/server/middleware"
	"github.com/jonathan/applydesk/internal/types"
)

const maxBodyBytes = 1 << 20

// validator is satisfied by every request DTO.
type validator interface {
	Validate() error
}

// actor returns the authenticated actor, writing a 401 when it is missing.
func (s *Server) actor(w http.ResponseWriter, r *http.Request) (types.Actor, bool) {
	a, err := middleware.GetActor(r)
	if err != nil {
		s.jsonResponse(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: err.Error()})
		return types.Actor{}, false
	}
	return a, true
}

// pathID parses a UUID path parameter.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, apperrors.Validation(name, "must be a UUID")
	}
	return id, nil
}

// decodeJSON reads a JSON body into dst. An empty body is accepted when optional is set.
// Request DTOs are validated here so malformed input is rejected before any service call.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			return &apperrors.AppError{Code: apperrors.CodeValidation, Message: "invalid request body", Cause: err}
		}
	}
	if v, ok := dst.(validator); ok {
		if err := v.Validate(); err != nil {
			return apperrors.FromValidator(err)
		}
	}
	return nil
}

// queryLimit parses the optional "limit" query parameter.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.Validation("limit", "must be a non-negative integer")
	}
	return n, nil
}

// handleMe echoes the authenticated actor.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, a)
}
