package enums

import "fmt"

// TradeStage describes a trade's position in its lifecycle. Stages advance
// monotonically draft → submitted → approved → closed; draft and submitted
// may instead branch to cancelled. Cancelled and closed are terminal.
type TradeStage string

const (
	TradeStageDraft     TradeStage = "draft"
	TradeStageSubmitted TradeStage = "submitted"
	TradeStageApproved  TradeStage = "approved"
	TradeStageCancelled TradeStage = "cancelled"
	TradeStageClosed    TradeStage = "closed"
)

var validTradeStages = []TradeStage{
	TradeStageDraft,
	TradeStageSubmitted,
	TradeStageApproved,
	TradeStageCancelled,
	TradeStageClosed,
}

// String implements fmt.Stringer.
func (s TradeStage) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TradeStage.
func (s TradeStage) IsValid() bool {
	for _, candidate := range validTradeStages {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions can leave this stage.
func (s TradeStage) IsTerminal() bool {
	return s == TradeStageCancelled || s == TradeStageClosed
}

// IsReadOnly reports whether the trade's business fields can no longer be
// edited. Derived from the stage, never stored.
func (s TradeStage) IsReadOnly() bool {
	return s != TradeStageDraft
}

// ParseTradeStage converts raw input into a TradeStage.
func ParseTradeStage(value string) (TradeStage, error) {
	for _, candidate := range validTradeStages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid trade stage %q", value)
}
