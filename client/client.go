// Package client is the Go SDK for the tradedesk API. It owns the bearer
// token plumbing: every request carries the current access token and active
// company header, a 401 triggers exactly one coalesced refresh followed by a
// single retry, and a refresh that fails signs the session out.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tradewind-labs/tradedesk-backend/client/session"
)

const companyHeader = "X-Company-Id"

// Client talks to the tradedesk API on behalf of one session.
type Client struct {
	baseURL  string
	http     *http.Client
	sessions *session.Manager
	refresh  singleflight.Group
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Sessions   *session.Manager
	HTTPClient *http.Client
}

// New builds a client. Sessions is required; HTTPClient defaults to a client
// with a 30s timeout.
func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:  baseURL,
		http:     httpClient,
		sessions: opts.Sessions,
	}, nil
}

// Sessions exposes the underlying session manager.
func (c *Client) Sessions() *session.Manager {
	return c.sessions
}

// Do sends an authenticated request. On a 401 it refreshes the token pair
// once (concurrent callers share one refresh) and retries the request a
// single time; a 401 on the retry is returned untouched.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := ensureReplayable(req); err != nil {
		return nil, err
	}

	snap := c.sessions.Snapshot()
	resp, err := c.send(req, snap)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if !snap.CanRefresh() {
		// A 401 with no refresh token to recover with: the session, if any,
		// is dead. Clear it and hand the response back.
		if snap.AccessToken != "" {
			if err := c.sessions.Logout(); err != nil {
				drain(resp)
				return nil, err
			}
		}
		return resp, nil
	}

	// The access token was rejected. Drop this response and refresh once.
	drain(resp)

	fresh, err := c.refreshSession(req.Context(), snap)
	if err != nil {
		return nil, err
	}
	return c.send(req, fresh)
}

func (c *Client) send(req *http.Request, snap session.Snapshot) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		cloned.Body = body
	}

	if snap.AccessToken != "" {
		cloned.Header.Set("Authorization", "Bearer "+snap.AccessToken)
	}
	if snap.ActiveCompanyID != "" {
		cloned.Header.Set(companyHeader, snap.ActiveCompanyID)
	}

	return c.http.Do(cloned)
}

// refreshSession rotates the token pair. Concurrent 401s collapse into one
// network call through the singleflight group; every waiter gets the same
// outcome. Failure to refresh signs the session out before returning.
func (c *Client) refreshSession(ctx context.Context, stale session.Snapshot) (session.Snapshot, error) {
	result, err, _ := c.refresh.Do("refresh", func() (any, error) {
		current := c.sessions.Snapshot()
		if current.Version != stale.Version {
			// Someone already rotated (or logged out) while we waited.
			return current, nil
		}

		refreshed, err := c.callRefresh(ctx, current)
		if err != nil {
			if logoutErr := c.sessions.Logout(); logoutErr != nil {
				return session.Snapshot{}, fmt.Errorf("refresh failed: %w (logout: %v)", err, logoutErr)
			}
			return session.Snapshot{}, fmt.Errorf("refresh failed: %w", err)
		}

		applied, err := c.sessions.ApplyRefresh(current.Version,
			refreshed.AccessToken, refreshed.RefreshToken,
			refreshed.ActiveCompanyID, refreshed.Companies, refreshed.User)
		if err != nil {
			return session.Snapshot{}, err
		}
		if !applied {
			// A logout or switch landed mid-refresh and wins. The rotated
			// tokens are abandoned; the session stays whatever it is now.
			return c.sessions.Snapshot(), nil
		}
		return c.sessions.Snapshot(), nil
	})
	if err != nil {
		return session.Snapshot{}, err
	}

	snap := result.(session.Snapshot)
	if !snap.CanRefresh() {
		return session.Snapshot{}, fmt.Errorf("session signed out")
	}
	return snap, nil
}

type refreshResult struct {
	AccessToken     string
	RefreshToken    string
	ActiveCompanyID string
	Companies       []session.Company
	User            *session.User
}

type tokenPairPayload struct {
	AccessToken     string            `json:"access_token"`
	RefreshToken    string            `json:"refresh_token"`
	ActiveCompanyID string            `json:"active_company_id"`
	Companies       []session.Company `json:"companies"`
	User            *session.User     `json:"user,omitempty"`
}

func (c *Client) callRefresh(ctx context.Context, snap session.Snapshot) (*refreshResult, error) {
	payload, err := json.Marshal(map[string]string{"refresh_token": snap.RefreshToken})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/auth/refresh", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+snap.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh rejected with status %d", resp.StatusCode)
	}

	var body struct {
		Data tokenPairPayload `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	if body.Data.AccessToken == "" || body.Data.RefreshToken == "" {
		return nil, fmt.Errorf("refresh response missing tokens")
	}

	return &refreshResult{
		AccessToken:     body.Data.AccessToken,
		RefreshToken:    body.Data.RefreshToken,
		ActiveCompanyID: body.Data.ActiveCompanyID,
		Companies:       body.Data.Companies,
		User:            body.Data.User,
	}, nil
}

// ensureReplayable guarantees the request body can be sent twice. Requests
// built with http.NewRequest over a bytes/strings reader already have
// GetBody; anything else gets buffered here.
func ensureReplayable(req *http.Request) error {
	if req.Body == nil || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("buffer request body: %w", err)
	}
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}
