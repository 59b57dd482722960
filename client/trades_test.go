package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestCanPerform(t *testing.T) {
	cases := []struct {
		role, stage, action string
		want                bool
	}{
		{"admin", "submitted", "approve", true},
		{"finance", "submitted", "approve", false},
		{"auditor", "draft", "submit", false},
		{"finance", "draft", "submit", true},
		{"finance", "approved", "close", true},
		{"admin", "cancelled", "edit", false},
		{"owner", "draft", "submit", false},
		{"finance", "limbo", "submit", false},
	}
	for _, tc := range cases {
		if got := CanPerform(tc.role, tc.stage, tc.action); got != tc.want {
			t.Errorf("CanPerform(%s, %s, %s) = %v, want %v", tc.role, tc.stage, tc.action, got, tc.want)
		}
	}
}

func TestCancelTradeValidatesReasonLocally(t *testing.T) {
	sessions := newSignedInManager(t)
	var dispatched int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&dispatched, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"trade_stage": "cancelled"}})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, sessions)
	ctx := context.Background()
	tradeID := "5f1c2f3e-0000-0000-0000-000000000000"

	// Nine characters: rejected before any network call.
	if err := c.CancelTrade(ctx, tradeID, "too short"); err == nil {
		t.Fatal("expected a validation error for a 9-char reason")
	}
	if err := c.CancelTrade(ctx, tradeID, strings.Repeat("x", 501)); err == nil {
		t.Fatal("expected a validation error for a 501-char reason")
	}
	if got := atomic.LoadInt32(&dispatched); got != 0 {
		t.Fatalf("invalid reasons were dispatched %d times", got)
	}

	// Exactly ten characters passes and reaches the server.
	if err := c.CancelTrade(ctx, tradeID, "ten chars!"); err != nil {
		t.Fatalf("valid reason rejected: %v", err)
	}
	if got := atomic.LoadInt32(&dispatched); got != 1 {
		t.Fatalf("dispatched = %d, want 1", got)
	}
}

func TestCallDecodesErrorEnvelope(t *testing.T) {
	sessions := newSignedInManager(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"code":    "STATE_CONFLICT",
				"message": "cannot approve trade in stage draft",
			},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, sessions)
	err := c.Call(context.Background(), http.MethodPost, "/api/v1/trades/x/approve", nil, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "cannot approve") {
		t.Errorf("error = %v", err)
	}
}
