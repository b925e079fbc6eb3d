package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/polling"
	"github.com/jonathan/applydesk/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestWaitForTailoring_StopsAtTerminal(t *testing.T) {
	jobID := uuid.New()
	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs/{id}/tailoring", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, jobID.String(), r.PathValue("id"))
		status := types.TailorStatusProcessing
		if polls.Add(1) >= 3 {
			status = types.TailorStatusCompleted
		}
		_ = json.NewEncoder(w).Encode(types.TailoredResume{JobID: jobID, Status: status, Attempt: 1})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL+"/", "tok", srv.Client())
	var delays []time.Duration
	tr, err := c.WaitForTailoring(context.Background(), jobID, polling.Poller{
		Sleep:  noSleep,
		OnPoll: func(_ int, d time.Duration) { delays = append(delays, d) },
	})
	require.NoError(t, err)
	assert.Equal(t, types.TailorStatusCompleted, tr.Status)
	assert.EqualValues(t, 3, polls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, delays)
}

func TestTriggerTailoring_SendsBody(t *testing.T) {
	jobID := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs/{id}/tailoring", func(w http.ResponseWriter, r *http.Request) {
		var req types.TriggerTailoringRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, types.TailorModeDirect, req.Mode)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(types.TailoredResume{JobID: jobID, Status: types.TailorStatusCompleted})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tr, err := New(srv.URL, "tok", nil).TriggerTailoring(context.Background(), jobID, &types.TriggerTailoringRequest{Mode: types.TailorModeDirect})
	require.NoError(t, err)
	assert.Equal(t, types.TailorStatusCompleted, tr.Status)
}

func TestErrorResponsesKeepCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"missing_prerequisite","message":"select a resume first","field":"resume_id"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok", nil).TailoringStatus(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeMissingPrerequisite))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "resume_id", appErr.Field)
}

func TestErrorResponsesWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", nil).Balance(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestGrantCredits(t *testing.T) {
	userID := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /credits/{user_id}/grant", func(w http.ResponseWriter, r *http.Request) {
		var req types.GrantCreditsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(types.CreditAccount{UserID: userID, Balance: req.Amount})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	acct, err := New(srv.URL, "tok", nil).GrantCredits(context.Background(), userID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, acct.Balance)
}
