package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/jobs"
	"github.com/jonathan/applydesk/internal/types"
)

func (s *Server) handleCreateResume(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req types.CreateResumeRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	resume, err := s.jobs.CreateResume(r.Context(), a, &req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, resume)
}

func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	resume, err := s.jobs.GetResume(r.Context(), a, id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resume)
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req types.CreateJobRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	job, err := s.jobs.Create(r.Context(), a, &req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	filter := jobs.ListFilter{Limit: limit}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = types.Ptr(types.JobStatus(status))
	}
	list, err := s.jobs.List(r.Context(), a, filter)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if list == nil {
		list = []*types.Job{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": list, "count": len(list)})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	s.jobAction(w, r, s.jobs.Get)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.UpdateJobRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	job, err := s.jobs.Update(r.Context(), a, id, &req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

func (s *Server) handleTrashJob(w http.ResponseWriter, r *http.Request) {
	s.jobAction(w, r, s.jobs.Trash)
}

func (s *Server) handleRestoreJob(w http.ResponseWriter, r *http.Request) {
	s.jobAction(w, r, s.jobs.Restore)
}

func (s *Server) handleDelegateJob(w http.ResponseWriter, r *http.Request) {
	s.jobAction(w, r, s.jobs.Delegate)
}

func (s *Server) handleProgressJob(w http.ResponseWriter, r *http.Request) {
	var req types.ProgressRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jobAction(w, r, func(ctx context.Context, a types.Actor, id uuid.UUID) (*types.Job, error) {
		return s.jobs.Progress(ctx, a, id, req.Status)
	})
}

// jobAction runs a body-less operation on the job named by the path.
func (s *Server) jobAction(w http.ResponseWriter, r *http.Request, op func(context.Context, types.Actor, uuid.UUID) (*types.Job, error)) {
	a, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
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

// handleBulk always answers 200 with one result per requested job.
func (s *Server) handleBulk(op func(context.Context, types.Actor, []uuid.UUID) []jobs.BulkResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.actor(w, r)
		if !ok {
			return
		}
		var req types.BulkJobsRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			s.errorResponse(w, r, err)
			return
		}
		results := op(r.Context(), a, req.JobIDs)
		failed := 0
		for _, res := range results {
			if !res.OK {
				failed++
			}
		}
		s.jsonResponse(w, http.StatusOK, map[string]any{
			"results":   results,
			"succeeded": len(results) - failed,
			"failed":    failed,
		})
	}
}
