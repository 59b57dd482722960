package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tradewind-labs/tradedesk-backend/internal/trades"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
)

// Cancel reason bounds, mirrored from the server so a short reason is never
// dispatched at all.
const (
	CancelReasonMinLen = trades.CancelReasonMinLen
	CancelReasonMaxLen = trades.CancelReasonMaxLen
)

// CanPerform reports whether the given role may apply the given lifecycle
// action to a trade in the given stage. UI layers use this to hide buttons;
// the server re-checks every transition regardless.
func CanPerform(role, stage, action string) bool {
	parsedRole, err := enums.ParseMemberRole(role)
	if err != nil {
		return false
	}
	parsedStage, err := enums.ParseTradeStage(stage)
	if err != nil {
		return false
	}
	return trades.Can(parsedRole, parsedStage, trades.Action(action))
}

// ValidateCancelReason applies the server's cancellation reason rules
// locally: trimmed length between 10 and 500 characters.
func ValidateCancelReason(reason string) error {
	return trades.ValidateCancelReason(reason)
}

// CancelTrade cancels a trade. The reason is validated locally first; an
// invalid reason never reaches the wire.
func (c *Client) CancelTrade(ctx context.Context, tradeID, reason string) error {
	if err := ValidateCancelReason(reason); err != nil {
		return err
	}
	return c.Call(ctx, http.MethodPost, "/api/v1/trades/"+tradeID+"/cancel",
		map[string]string{"reason": reason}, nil)
}

// Call sends a JSON request through the authenticated pipeline and decodes
// the success envelope's data into out (which may be nil).
func (c *Client) Call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr == nil && envelope.Error.Message != "" {
			return fmt.Errorf("%s: %s", envelope.Error.Code, envelope.Error.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return json.Unmarshal(envelope.Data, out)
}
