package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tradewind-labs/tradedesk-backend/client/session"
)

// Login exchanges credentials for a session and installs it.
func (c *Client) Login(ctx context.Context, email, password string) (session.Snapshot, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return session.Snapshot{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/auth/login", bytes.NewReader(payload))
	if err != nil {
		return session.Snapshot{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return session.Snapshot{}, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return session.Snapshot{}, fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}

	var body struct {
		Data tokenPairPayload `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return session.Snapshot{}, fmt.Errorf("decode login response: %w", err)
	}

	if err := c.sessions.SetCredentials(
		body.Data.AccessToken, body.Data.RefreshToken,
		body.Data.ActiveCompanyID, body.Data.Companies, body.Data.User,
	); err != nil {
		return session.Snapshot{}, err
	}
	return c.sessions.Snapshot(), nil
}

// Logout revokes the server session on a best-effort basis and always clears
// the local one. Safe to call when already signed out.
func (c *Client) Logout(ctx context.Context) error {
	snap := c.sessions.Snapshot()
	if snap.AccessToken != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/api/v1/auth/logout", nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+snap.AccessToken)
			if resp, sendErr := c.http.Do(req); sendErr == nil {
				drain(resp)
			}
		}
	}
	return c.sessions.Logout()
}

type switchCompanyPayload struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Company      session.Company `json:"company"`
}

// SwitchCompany asks the server to re-mint the session for another company
// and adopts the confirmed company, role included, into the local session.
// The server response is authoritative: the local role is whatever came back,
// never what the client last cached.
func (c *Client) SwitchCompany(ctx context.Context, companyID string) (session.Snapshot, error) {
	snap := c.sessions.Snapshot()
	if !snap.CanRefresh() {
		return session.Snapshot{}, fmt.Errorf("not signed in")
	}

	payload, err := json.Marshal(map[string]string{
		"company_id":    companyID,
		"refresh_token": snap.RefreshToken,
	})
	if err != nil {
		return session.Snapshot{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/auth/switch-company", bytes.NewReader(payload))
	if err != nil {
		return session.Snapshot{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+snap.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return session.Snapshot{}, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return session.Snapshot{}, fmt.Errorf("switch company rejected with status %d", resp.StatusCode)
	}

	var body struct {
		Data switchCompanyPayload `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return session.Snapshot{}, fmt.Errorf("decode switch response: %w", err)
	}

	if err := c.sessions.AdoptCompany(body.Data.Company,
		body.Data.AccessToken, body.Data.RefreshToken); err != nil {
		return session.Snapshot{}, err
	}
	return c.sessions.Snapshot(), nil
}
