// Package remote is the HTTP client for the goal service. The service is
// treated as unreliable: the absence of any response is a connectivity
// failure, every received response is classified into the apperr taxonomy.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/corbin/stride/internal/apperr"
	"github.com/corbin/stride/internal/models"
	"github.com/corbin/stride/internal/secrets"
	"github.com/corbin/stride/internal/stats"
)

// Client talks to the remote goal service.
type Client struct {
	baseURL string
	http    *http.Client
	secrets secrets.Store
}

// NewClient creates a remote client. The bearer token is read from the
// secret store per request, so a login that happens after construction is
// picked up immediately.
func NewClient(baseURL string, timeout time.Duration, sec secrets.Store) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		secrets: sec,
	}
}

// CreateGoal creates a goal and returns the server-authoritative record.
func (c *Client) CreateGoal(ctx context.Context, in models.GoalInput) (models.Goal, error) {
	var g models.Goal
	err := c.do(ctx, http.MethodPost, "/goals", in, &g)
	return g, err
}

// UpdateGoal updates a goal by id.
func (c *Client) UpdateGoal(ctx context.Context, id models.ID, in models.GoalInput) (models.Goal, error) {
	var g models.Goal
	err := c.do(ctx, http.MethodPut, "/goals/"+id.String(), in, &g)
	return g, err
}

// DeleteGoal deletes a goal by id.
func (c *Client) DeleteGoal(ctx context.Context, id models.ID) error {
	return c.do(ctx, http.MethodDelete, "/goals/"+id.String(), nil, nil)
}

// Goals returns all goals for the authenticated user.
func (c *Client) Goals(ctx context.Context) ([]models.Goal, error) {
	var out []models.Goal
	err := c.do(ctx, http.MethodGet, "/goals", nil, &out)
	return out, err
}

// GoalByID returns one goal.
func (c *Client) GoalByID(ctx context.Context, id models.ID) (models.Goal, error) {
	var g models.Goal
	err := c.do(ctx, http.MethodGet, "/goals/"+id.String(), nil, &g)
	return g, err
}

// CreateCheckin creates a check-in and returns the server record.
func (c *Client) CreateCheckin(ctx context.Context, in models.CheckInInput) (models.CheckIn, error) {
	var ci models.CheckIn
	err := c.do(ctx, http.MethodPost, "/checkins", in, &ci)
	return ci, err
}

// UpdateCheckin updates a check-in's mutable fields.
func (c *Client) UpdateCheckin(ctx context.Context, id models.ID, upd models.CheckInUpdate) (models.CheckIn, error) {
	var ci models.CheckIn
	err := c.do(ctx, http.MethodPut, "/checkins/"+id.String(), upd, &ci)
	return ci, err
}

// Checkins returns all check-ins for a goal.
func (c *Client) Checkins(ctx context.Context, goalID models.ID) ([]models.CheckIn, error) {
	var out []models.CheckIn
	err := c.do(ctx, http.MethodGet, "/checkins/"+goalID.String(), nil, &out)
	return out, err
}

// Stats returns server-computed statistics for a goal.
func (c *Client) Stats(ctx context.Context, goalID models.ID) (stats.Stats, error) {
	var s stats.Stats
	err := c.do(ctx, http.MethodGet, "/checkins/"+goalID.String()+"/stats", nil, &s)
	return s, err
}

// errBody is the detail shape the service returns on rejection.
type errBody struct {
	Detail string `json:"detail"`
}

// do performs one request and classifies the outcome. A transport-level
// failure (no response at all) maps to apperr.ErrConnectivity; received
// responses map onto the rest of the taxonomy by status code.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("remote: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token, err := c.secrets.Get(secrets.TokenKey); err == nil && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w: %v", method, path, apperr.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("remote: decode %s %s: %w", method, path, err)
		}
		return nil
	}

	var detail errBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&detail)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// Expired or revoked credential: clear it so the caller knows a
		// fresh login is required before sync can resume.
		_ = c.secrets.Delete(secrets.TokenKey)
		return fmt.Errorf("remote: %s %s: %w", method, path, apperr.ErrAuth)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("remote: %s %s: %w", method, path, apperr.ErrNotFound)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("remote: %s %s: %s: %w", method, path, detail.Detail, apperr.ErrConflict)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("remote: %s %s: %s: %w", method, path, detail.Detail, apperr.ErrValidation)
	default:
		return fmt.Errorf("remote: %s %s: server error %d", method, path, resp.StatusCode)
	}
}
