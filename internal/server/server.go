// Package server provides the HTTP REST API for job tracking, delegation and tailoring.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jonathan/applydesk/internal/claims"
	"github.com/jonathan/applydesk/internal/credits"
	"github.com/jonathan/applydesk/internal/jobs"
	"github.com/jonathan/applydesk/internal/server/middleware"
	"github.com/jonathan/applydesk/internal/server/ratelimit"
	"github.com/jonathan/applydesk/internal/submission"
	"github.com/jonathan/applydesk/internal/tailoring"
	"github.com/rs/cors"
)

const shutdownTimeout = 30 * time.Second

// Deps groups the services the API exposes.
type Deps struct {
	Jobs       *jobs.Service             // Required
	Claims     *claims.Service           // Required
	Credits    *credits.Ledger           // Required
	Submission *submission.Gate          // Required
	Tailoring  *tailoring.Service        // Required
	Tokens     middleware.TokenValidator // Required
	Limiter    *ratelimit.Limiter        // Optional: no rate limiting when nil
	Logger     *slog.Logger              // Optional: structured logger
}

// Config holds server configuration
type Config struct {
	Port        int
	CORSOrigins []string
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	jobs       *jobs.Service
	claims     *claims.Service
	credits    *credits.Ledger
	submission *submission.Gate
	tailoring  *tailoring.Service
	limiter    *ratelimit.Limiter
	logger     *slog.Logger
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Jobs == nil || deps.Claims == nil || deps.Credits == nil || deps.Submission == nil || deps.Tailoring == nil {
		return nil, errors.New("all services are required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("token validator is required")
	}
	s := &Server{
		jobs:       deps.Jobs,
		claims:     deps.Claims,
		credits:    deps.Credits,
		submission: deps.Submission,
		tailoring:  deps.Tailoring,
		limiter:    deps.Limiter,
		logger:     deps.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "server")

	api := http.NewServeMux()
	api.HandleFunc("GET /me", s.handleMe)

	api.HandleFunc("POST /resumes", s.handleCreateResume)
	api.HandleFunc("GET /resumes/{id}", s.handleGetResume)

	api.HandleFunc("POST /jobs", s.handleCreateJob)
	api.HandleFunc("GET /jobs", s.handleListJobs)
	api.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	api.HandleFunc("PATCH /jobs/{id}", s.handleUpdateJob)
	api.HandleFunc("POST /jobs/{id}/trash", s.handleTrashJob)
	api.HandleFunc("POST /jobs/{id}/restore", s.handleRestoreJob)
	api.HandleFunc("POST /jobs/{id}/delegate", s.handleDelegateJob)
	api.HandleFunc("POST /jobs/{id}/progress", s.handleProgressJob)

	// Registered per action: "POST /jobs/bulk/{action}" would overlap "POST /jobs/{id}/trash".
	api.HandleFunc("POST /jobs/bulk/trash", s.handleBulk(s.jobs.BulkTrash))
	api.HandleFunc("POST /jobs/bulk/restore", s.handleBulk(s.jobs.BulkRestore))
	api.HandleFunc("POST /jobs/bulk/delegate", s.handleBulk(s.jobs.BulkDelegate))

	api.HandleFunc("POST /jobs/{id}/tailoring", s.handleTriggerTailoring)
	api.HandleFunc("GET /jobs/{id}/tailoring", s.handleTailoringStatus)
	api.HandleFunc("PATCH /jobs/{id}/tailoring", s.handleTweakTailoring)
	api.HandleFunc("POST /jobs/{id}/cover-letter", s.handleCoverLetter)

	api.HandleFunc("GET /tasks", s.handleListTasks)
	api.HandleFunc("GET /tasks/{id}", s.handleGetTask)
	api.HandleFunc("POST /tasks/{id}/claim", s.handleClaimTask)
	api.HandleFunc("POST /tasks/{id}/unassign", s.handleUnassignTask)
	api.HandleFunc("POST /tasks/{id}/proof", s.handleAttachProof)
	api.HandleFunc("POST /tasks/{id}/submit", s.handleSubmitTask)
	api.HandleFunc("POST /tasks/{id}/cannot-apply", s.handleCannotApply)

	api.HandleFunc("GET /credits/{user_id}", s.handleGetCredits)
	api.HandleFunc("POST /credits/{user_id}/grant", s.handleGrantCredits)
	api.HandleFunc("PUT /credits/{user_id}/flags", s.handleSetAccountFlags)

	root := http.NewServeMux()
	root.HandleFunc("GET /health", s.handleHealth)
	root.Handle("/", middleware.AuthMiddleware(deps.Tokens)(s.withRateLimit(api)))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         600,
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      c.Handler(s.withLogging(root)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // direct tailoring runs synchronously
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if s.limiter != nil {
		s.limiter.Stop()
	}
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// withRateLimit throttles per actor, falling back to the remote IP.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.limiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.InfoContext(r.Context(), "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// errorResponse writes err as a JSON error with the status its code maps to.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status, body := newErrorBody(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	s.jsonResponse(w, status, body)
}

// extractClientID identifies the caller for rate limiting: the authenticated actor when
// known, otherwise the IP address from RemoteAddr.
func extractClientID(r *http.Request) string {
	if actor, err := middleware.GetActor(r); err == nil {
		return actor.ID.String()
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.WarnContext(r.Context(), "rate limit exceeded",
		"path", r.URL.Path,
		"limit", info.Limit,
		"reset", info.ResetTime.Format(time.RFC3339),
	)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
