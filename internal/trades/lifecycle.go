package trades

import (
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"

	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
)

// Action identifies a trade lifecycle operation.
type Action string

const (
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionCancel  Action = "cancel"
	ActionClose   Action = "close"
)

const (
	// CancelReasonMinLen and CancelReasonMaxLen bound the mandatory cancel reason.
	CancelReasonMinLen = 10
	CancelReasonMaxLen = 500
)

// StageOrder is the forward walk of the happy path. Cancellation branches
// off draft or submitted and is not part of the order.
var StageOrder = []enums.TradeStage{
	enums.TradeStageDraft,
	enums.TradeStageSubmitted,
	enums.TradeStageApproved,
	enums.TradeStageClosed,
}

// transition captures one legal row of the lifecycle table.
type transition struct {
	from  map[enums.TradeStage]bool
	to    enums.TradeStage
	roles map[enums.MemberRole]bool
}

var financeOrAdmin = map[enums.MemberRole]bool{
	enums.MemberRoleFinance: true,
	enums.MemberRoleAdmin:   true,
}

var adminOnly = map[enums.MemberRole]bool{
	enums.MemberRoleAdmin: true,
}

var transitions = map[Action]transition{
	ActionEdit: {
		from:  map[enums.TradeStage]bool{enums.TradeStageDraft: true},
		to:    enums.TradeStageDraft,
		roles: financeOrAdmin,
	},
	ActionSubmit: {
		from:  map[enums.TradeStage]bool{enums.TradeStageDraft: true},
		to:    enums.TradeStageSubmitted,
		roles: financeOrAdmin,
	},
	ActionApprove: {
		from:  map[enums.TradeStage]bool{enums.TradeStageSubmitted: true},
		to:    enums.TradeStageApproved,
		roles: adminOnly,
	},
	ActionCancel: {
		from: map[enums.TradeStage]bool{
			enums.TradeStageDraft:     true,
			enums.TradeStageSubmitted: true,
		},
		to:    enums.TradeStageCancelled,
		roles: financeOrAdmin,
	},
	ActionClose: {
		from:  map[enums.TradeStage]bool{enums.TradeStageApproved: true},
		to:    enums.TradeStageClosed,
		roles: financeOrAdmin,
	},
}

// Can is the pure lifecycle guard: it reports whether the role may perform
// the action on a trade sitting at the given stage. Every triple outside
// the transition table is false; auditors are view-only everywhere. Callers
// re-check the guard immediately before dispatch, never trusting an earlier
// evaluation.
func Can(role enums.MemberRole, stage enums.TradeStage, action Action) bool {
	if action == ActionCreate {
		return financeOrAdmin[role]
	}
	t, ok := transitions[action]
	if !ok {
		return false
	}
	return t.roles[role] && t.from[stage]
}

// CanCreate reports whether the role may create trades at all.
func CanCreate(role enums.MemberRole) bool {
	return Can(role, enums.TradeStageDraft, ActionCreate)
}

// CanEdit reports whether business fields may change at the given stage.
func CanEdit(role enums.MemberRole, stage enums.TradeStage) bool {
	return Can(role, stage, ActionEdit)
}

// CanSubmit reports whether the trade may move draft → submitted.
func CanSubmit(role enums.MemberRole, stage enums.TradeStage) bool {
	return Can(role, stage, ActionSubmit)
}

// CanApprove reports whether the trade may move submitted → approved.
func CanApprove(role enums.MemberRole, stage enums.TradeStage) bool {
	return Can(role, stage, ActionApprove)
}

// CanCancel reports whether the trade may branch to cancelled.
func CanCancel(role enums.MemberRole, stage enums.TradeStage) bool {
	return Can(role, stage, ActionCancel)
}

// CanClose reports whether the trade may move approved → closed.
func CanClose(role enums.MemberRole, stage enums.TradeStage) bool {
	return Can(role, stage, ActionClose)
}

// TargetStage returns the stage the action produces.
func TargetStage(action Action) (enums.TradeStage, bool) {
	t, ok := transitions[action]
	if !ok {
		return "", false
	}
	return t.to, true
}

// ValidateCancelReason enforces the 10..500 character bound on the mandatory
// cancellation reason. Length is measured in runes after trimming.
func ValidateCancelReason(reason string) error {
	trimmed := strings.TrimSpace(reason)
	n := utf8.RuneCountInString(trimmed)
	if n < CancelReasonMinLen {
		return pkgerrors.New(pkgerrors.CodeValidation, "cancel reason must be at least 10 characters")
	}
	if n > CancelReasonMaxLen {
		return pkgerrors.New(pkgerrors.CodeValidation, "cancel reason must be at most 500 characters")
	}
	return nil
}
