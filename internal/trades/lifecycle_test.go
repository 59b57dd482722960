package trades

import (
	"strings"
	"testing"

	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
)

func TestCanGuardTable(t *testing.T) {
	roles := []enums.MemberRole{enums.MemberRoleAdmin, enums.MemberRoleFinance, enums.MemberRoleAuditor}
	stages := []enums.TradeStage{
		enums.TradeStageDraft,
		enums.TradeStageSubmitted,
		enums.TradeStageApproved,
		enums.TradeStageCancelled,
		enums.TradeStageClosed,
	}
	actions := []Action{ActionEdit, ActionSubmit, ActionApprove, ActionCancel, ActionClose}

	type triple struct {
		role   enums.MemberRole
		stage  enums.TradeStage
		action Action
	}
	allowed := map[triple]bool{
		{enums.MemberRoleFinance, enums.TradeStageDraft, ActionEdit}:       true,
		{enums.MemberRoleAdmin, enums.TradeStageDraft, ActionEdit}:         true,
		{enums.MemberRoleFinance, enums.TradeStageDraft, ActionSubmit}:     true,
		{enums.MemberRoleAdmin, enums.TradeStageDraft, ActionSubmit}:       true,
		{enums.MemberRoleAdmin, enums.TradeStageSubmitted, ActionApprove}:  true,
		{enums.MemberRoleFinance, enums.TradeStageDraft, ActionCancel}:     true,
		{enums.MemberRoleAdmin, enums.TradeStageDraft, ActionCancel}:       true,
		{enums.MemberRoleFinance, enums.TradeStageSubmitted, ActionCancel}: true,
		{enums.MemberRoleAdmin, enums.TradeStageSubmitted, ActionCancel}:   true,
		{enums.MemberRoleFinance, enums.TradeStageApproved, ActionClose}:   true,
		{enums.MemberRoleAdmin, enums.TradeStageApproved, ActionClose}:     true,
	}

	for _, role := range roles {
		for _, stage := range stages {
			for _, action := range actions {
				want := allowed[triple{role, stage, action}]
				if got := Can(role, stage, action); got != want {
					t.Errorf("Can(%s, %s, %s) = %v, want %v", role, stage, action, got, want)
				}
			}
		}
	}
}

func TestCanCreate(t *testing.T) {
	if !CanCreate(enums.MemberRoleFinance) {
		t.Error("finance should create trades")
	}
	if !CanCreate(enums.MemberRoleAdmin) {
		t.Error("admin should create trades")
	}
	if CanCreate(enums.MemberRoleAuditor) {
		t.Error("auditor must not create trades")
	}
}

func TestApproveIsAdminOnly(t *testing.T) {
	if CanApprove(enums.MemberRoleFinance, enums.TradeStageSubmitted) {
		t.Error("finance must not approve")
	}
	if CanApprove(enums.MemberRoleAdmin, enums.TradeStageDraft) {
		t.Error("draft trades cannot be approved")
	}
	if !CanApprove(enums.MemberRoleAdmin, enums.TradeStageSubmitted) {
		t.Error("admin should approve submitted trades")
	}
}

func TestTerminalStagesRejectEverything(t *testing.T) {
	for _, stage := range []enums.TradeStage{enums.TradeStageCancelled, enums.TradeStageClosed} {
		for _, action := range []Action{ActionEdit, ActionSubmit, ActionApprove, ActionCancel, ActionClose} {
			if Can(enums.MemberRoleAdmin, stage, action) {
				t.Errorf("admin %s allowed on terminal stage %s", action, stage)
			}
		}
	}
}

func TestTargetStage(t *testing.T) {
	cases := map[Action]enums.TradeStage{
		ActionSubmit:  enums.TradeStageSubmitted,
		ActionApprove: enums.TradeStageApproved,
		ActionCancel:  enums.TradeStageCancelled,
		ActionClose:   enums.TradeStageClosed,
	}
	for action, want := range cases {
		got, ok := TargetStage(action)
		if !ok || got != want {
			t.Errorf("TargetStage(%s) = %s, %v; want %s", action, got, ok, want)
		}
	}
	if _, ok := TargetStage(ActionCreate); ok {
		t.Error("create has no target stage")
	}
}

func TestValidateCancelReason(t *testing.T) {
	cases := []struct {
		name    string
		reason  string
		wantErr bool
	}{
		{"too short", strings.Repeat("x", 9), true},
		{"minimum", strings.Repeat("x", 10), false},
		{"maximum", strings.Repeat("x", 500), false},
		{"too long", strings.Repeat("x", 501), true},
		{"whitespace padded below minimum", "  short  ", true},
		{"empty", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCancelReason(tc.reason)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
					t.Fatalf("expected validation code, got %s", pkgerrors.As(err).Code())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
