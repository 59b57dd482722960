package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tradewind-labs/tradedesk-backend/client/session"
)

func newSignedInManager(t *testing.T) *session.Manager {
	t.Helper()
	m, err := session.NewManager(session.NewMemoryStore())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	err = m.SetCredentials("access-old", "refresh-old", "co-1",
		[]session.Company{{ID: "co-1", Name: "Alpha FX", BaseCurrency: "USD", Role: "finance"}},
		&session.User{ID: "u-1", Email: "trader@example.com"})
	if err != nil {
		t.Fatalf("set credentials: %v", err)
	}
	return m
}

func newTestClient(t *testing.T, serverURL string, sessions *session.Manager) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: serverURL, Sessions: sessions})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func writeRefreshResponse(w http.ResponseWriter, access, refresh string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"data": map[string]any{
			"access_token":      access,
			"refresh_token":     refresh,
			"active_company_id": "co-1",
			"companies": []map[string]string{
				{"id": "co-1", "name": "Alpha FX", "base_currency": "USD", "role": "finance"},
			},
			"user": map[string]string{"id": "u-1", "email": "trader@example.com"},
		},
	})
}

func TestDoAttachesAuthHeaders(t *testing.T) {
	sessions := newSignedInManager(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-old" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.Header.Get("X-Company-Id"); got != "co-1" {
			t.Errorf("company header = %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, sessions)
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/trades", nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestDoRefreshesOnceAndRetries(t *testing.T) {
	sessions := newSignedInManager(t)
	var refreshCalls, tradeCalls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			atomic.AddInt32(&refreshCalls, 1)
			writeRefreshResponse(w, "access-new", "refresh-new")
		case "/api/v1/trades":
			atomic.AddInt32(&tradeCalls, 1)
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), "EUR/USD") {
				t.Errorf("retry lost the request body: %q", body)
			}
			if r.Header.Get("Authorization") == "Bearer access-old" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusCreated)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, sessions)
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/v1/trades",
		strings.NewReader(`{"currency_pair":"EUR/USD"}`))
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201 after refresh+retry", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&refreshCalls); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
	if got := atomic.LoadInt32(&tradeCalls); got != 2 {
		t.Errorf("trade calls = %d, want 2", got)
	}
	if snap := sessions.Snapshot(); snap.AccessToken != "access-new" {
		t.Errorf("session not rotated: %q", snap.AccessToken)
	}
}

func TestRefreshPersistsReturnedUser(t *testing.T) {
	sessions := newSignedInManager(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"access_token":      "access-new",
					"refresh_token":     "refresh-new",
					"active_company_id": "co-1",
					"companies": []map[string]string{
						{"id": "co-1", "name": "Alpha FX", "base_currency": "USD", "role": "finance"},
					},
					"user": map[string]string{
						"id": "u-1", "email": "trader@example.com", "first_name": "Renamed",
					},
				},
			})
		case "/api/v1/trades":
			if r.Header.Get("Authorization") == "Bearer access-old" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, sessions)
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/trades", nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	snap := sessions.Snapshot()
	if snap.User == nil || snap.User.FirstName != "Renamed" {
		t.Fatalf("refreshed user not persisted: %+v", snap.User)
	}
	if snap.AccessToken != "access-new" {
		t.Errorf("session not rotated: %q", snap.AccessToken)
	}
}

func TestDoSecondUnauthorizedReturnedAsIs(t *testing.T) {
	sessions := newSignedInManager(t)
	var refreshCalls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			atomic.AddInt32(&refreshCalls, 1)
			writeRefreshResponse(w, "access-new", "refresh-new")
			return
		}
		// Role revoked server-side: even the fresh token is rejected.
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, sessions)
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/trades", nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want the second 401 surfaced", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&refreshCalls); got != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", got)
	}
}

func TestConcurrentRequestsShareOneRefresh(t *testing.T) {
	sessions := newSignedInManager(t)
	var refreshCalls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			atomic.AddInt32(&refreshCalls, 1)
			writeRefreshResponse(w, "access-new", "refresh-new")
			return
		}
		if r.Header.Get("Authorization") == "Bearer access-old" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, sessions)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodGet, c.baseURL+"/api/v1/trades", nil)
			resp, err := c.Do(req)
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- &statusError{resp.StatusCode}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("worker: %v", err)
	}

	if got := atomic.LoadInt32(&refreshCalls); got != 1 {
		t.Errorf("refresh calls = %d, want coalesced to 1", got)
	}
}

type statusError struct{ code int }

func (e *statusError) Error() string { return http.StatusText(e.code) }

func TestRefreshFailureLogsOut(t *testing.T) {
	sessions := newSignedInManager(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, sessions)
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/trades", nil)
	if _, err := c.Do(req); err == nil {
		t.Fatal("expected an error when refresh is rejected")
	}

	if sessions.Snapshot().Authenticated() {
		t.Fatal("failed refresh must sign the session out")
	}
}

func TestLogoutDuringRefreshWins(t *testing.T) {
	sessions := newSignedInManager(t)
	refreshStarted := make(chan struct{})
	logoutDone := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			close(refreshStarted)
			<-logoutDone
			writeRefreshResponse(w, "access-late", "refresh-late")
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, sessions)

	go func() {
		<-refreshStarted
		if err := sessions.Logout(); err != nil {
			t.Errorf("logout: %v", err)
		}
		close(logoutDone)
	}()

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/trades", nil)
	if _, err := c.Do(req); err == nil {
		t.Fatal("expected an error: the session was logged out mid-refresh")
	}

	snap := sessions.Snapshot()
	if snap.Authenticated() {
		t.Fatalf("late refresh resurrected the session: %+v", snap)
	}
	if snap.AccessToken == "access-late" {
		t.Fatal("abandoned tokens were applied")
	}
}

func TestLoginInstallsSession(t *testing.T) {
	m, err := session.NewManager(session.NewMemoryStore())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["email"] != "trader@example.com" {
			t.Errorf("email = %q", creds["email"])
		}
		writeRefreshResponse(w, "access-1", "refresh-1")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, m)
	snap, err := c.Login(context.Background(), "trader@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !snap.Authenticated() || snap.ActiveCompanyID != "co-1" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSwitchCompanyAdoptsServerRole(t *testing.T) {
	sessions := newSignedInManager(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/switch-company" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"access_token":  "access-2",
				"refresh_token": "refresh-2",
				"company": map[string]string{
					"id": "co-9", "name": "Gamma Imports", "base_currency": "GBP", "role": "auditor",
				},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, sessions)
	snap, err := c.SwitchCompany(context.Background(), "co-9")
	if err != nil {
		t.Fatalf("switch company: %v", err)
	}

	if snap.ActiveCompanyID != "co-9" || snap.AccessToken != "access-2" {
		t.Fatalf("snapshot = %+v", snap)
	}
	company, ok := snap.Company("co-9")
	if !ok || company.Role != "auditor" {
		t.Fatalf("adopted company = %+v, want server-confirmed auditor role", company)
	}
}

func TestClientLogoutIdempotent(t *testing.T) {
	sessions := newSignedInManager(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, sessions)
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("first logout: %v", err)
	}
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if sessions.Snapshot().Authenticated() {
		t.Fatal("session still authenticated after logout")
	}
}
