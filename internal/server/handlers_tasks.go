package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/claims"
	"github.com/jonathan/applydesk/internal/jobs"
	"github.com/jonathan/applydesk/internal/types"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	filter := claims.QueueFilter{Limit: limit}
	if raw := r.URL.Query().Get("mine"); raw != "" {
		mine, err := strconv.ParseBool(raw)
		if err != nil {
			s.errorResponse(w, r, apperrors.Validation("mine", "must be a boolean"))
			return
		}
		filter.Mine = mine
	}
	tasks, err := s.claims.ListQueue(r.Context(), a, filter)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []types.DelegationTask{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}

// handleGetTask accepts either the job ID or its delegation code.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(r.PathValue("id"))
	if !jobs.IsDelegationCode(code) {
		s.taskAction(w, r, s.claims.GetTask)
		return
	}
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	task, err := s.claims.GetTaskByCode(r.Context(), a, code)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, task)
}

func (s *Server) handleClaimTask(w http.ResponseWriter, r *http.Request) {
	s.taskAction(w, r, s.claims.Claim)
}

func (s *Server) handleUnassignTask(w http.ResponseWriter, r *http.Request) {
	s.taskAction(w, r, s.claims.Unassign)
}

// taskAction runs a body-less claim operation on the task named by the path.
func (s *Server) taskAction(w http.ResponseWriter, r *http.Request, op func(context.Context, types.Actor, uuid.UUID) (*types.DelegationTask, error)) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	task, err := op(r.Context(), a, id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, task)
}

func (s *Server) handleAttachProof(w http.ResponseWriter, r *http.Request) {
	var req types.ProofRequest
	s.submissionAction(w, r, &req, false, func(ctx context.Context, a types.Actor, id uuid.UUID) (*types.Job, error) {
		return s.submission.AttachProof(ctx, a, id, &req)
	})
}

func (s *Server) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	var req types.ProofRequest
	s.submissionAction(w, r, &req, true, func(ctx context.Context, a types.Actor, id uuid.UUID) (*types.Job, error) {
		return s.submission.Submit(ctx, a, id, &req)
	})
}

func (s *Server) handleCannotApply(w http.ResponseWriter, r *http.Request) {
	var req types.CannotApplyRequest
	s.submissionAction(w, r, &req, false, func(ctx context.Context, a types.Actor, id uuid.UUID) (*types.Job, error) {
		return s.submission.ReportCannotApply(ctx, a, id, &req)
	})
}

func (s *Server) submissionAction(w http.ResponseWriter, r *http.Request, req any, optional bool, op func(context.Context, types.Actor, uuid.UUID) (*types.Job, error)) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := decodeJSON(w, r, req, optional); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	job, err := op(r.Context(), a, id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}
