package server

import (
	"net/http"

	"github.com/jonathan/applydesk/internal/types"
)

func (s *Server) handleGetCredits(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "user_id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	acct, err := s.credits.Balance(r.Context(), a, userID)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, acct)
}

func (s *Server) handleGrantCredits(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "user_id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.GrantCreditsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	acct, err := s.credits.Grant(r.Context(), a, userID, &req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, acct)
}

func (s *Server) handleSetAccountFlags(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "user_id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.AccountFlagsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	acct, err := s.credits.SetFlags(r.Context(), a, userID, &req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, acct)
}
