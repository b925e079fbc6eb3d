// Package client is a small HTTP client for the API, used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/applydesk/internal/apperrors"
	"github.com/jonathan/applydesk/internal/polling"
	"github.com/jonathan/applydesk/internal/types"
)

const defaultTimeout = 90 * time.Second

// Client calls the API on behalf of one actor.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for baseURL authenticating with token. A nil httpClient uses a
// client with a default timeout.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

// TriggerTailoring starts a tailoring run for the job.
func (c *Client) TriggerTailoring(ctx context.Context, jobID uuid.UUID, req *types.TriggerTailoringRequest) (*types.TailoredResume, error) {
	var out types.TailoredResume
	if err := c.do(ctx, http.MethodPost, "/jobs/"+jobID.String()+"/tailoring", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TailoringStatus fetches the job's tailoring record.
func (c *Client) TailoringStatus(ctx context.Context, jobID uuid.UUID) (*types.TailoredResume, error) {
	var out types.TailoredResume
	if err := c.do(ctx, http.MethodGet, "/jobs/"+jobID.String()+"/tailoring", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForTailoring polls the job's tailoring record until it is completed or failed.
func (c *Client) WaitForTailoring(ctx context.Context, jobID uuid.UUID, p polling.Poller) (*types.TailoredResume, error) {
	return polling.Poll(ctx, p,
		func(ctx context.Context) (*types.TailoredResume, error) {
			return c.TailoringStatus(ctx, jobID)
		},
		func(tr *types.TailoredResume) bool {
			return tr.Status.Terminal()
		},
	)
}

// Balance returns a user's credit account.
func (c *Client) Balance(ctx context.Context, userID uuid.UUID) (*types.CreditAccount, error) {
	var out types.CreditAccount
	if err := c.do(ctx, http.MethodGet, "/credits/"+userID.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GrantCredits tops up a user's balance. Admin only.
func (c *Client) GrantCredits(ctx context.Context, userID uuid.UUID, amount int) (*types.CreditAccount, error) {
	var out types.CreditAccount
	req := &types.GrantCreditsRequest{Amount: amount}
	if err := c.do(ctx, http.MethodPost, "/credits/"+userID.String()+"/grant", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends a JSON request and decodes a JSON response. Error responses are returned as
// *apperrors.AppError carrying the server's code, message and field.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Field   string `json:"field"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		return &apperrors.AppError{
			Code:    apperrors.CodeInternal,
			Message: fmt.Sprintf("unexpected status %d", status),
			Cause:   errors.New(strings.TrimSpace(string(data))),
		}
	}
	return &apperrors.AppError{Code: apperrors.Code(body.Error), Message: body.Message, Field: body.Field}
}
