package server

import (
	"net/http"

	"github.com/jonathan/applydesk/internal/types"
)

// handleTriggerTailoring answers 202 while a queued run is pending and 200 once a direct run
// has finished.
func (s *Server) handleTriggerTailoring(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.TriggerTailoringRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	tr, err := s.tailoring.Trigger(r.Context(), a, id, &req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	status := http.StatusAccepted
	if tr.Status.Terminal() {
		status = http.StatusOK
	}
	s.jsonResponse(w, status, tr)
}

func (s *Server) handleTailoringStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	tr, err := s.tailoring.Status(r.Context(), a, id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, tr)
}

func (s *Server) handleTweakTailoring(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.TweakTailoringRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	tr, err := s.tailoring.Tweak(r.Context(), a, id, &req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, tr)
}

func (s *Server) handleCoverLetter(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.CoverLetterRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	job, err := s.tailoring.GenerateCoverLetter(r.Context(), a, id, &req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}
