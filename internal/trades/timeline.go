package trades

import (
	"time"

	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
)

// TimelineEventType labels a reconstructed lifecycle event.
type TimelineEventType string

const (
	TimelineCreated   TimelineEventType = "CREATED"
	TimelineSubmitted TimelineEventType = "SUBMITTED"
	TimelineApproved  TimelineEventType = "APPROVED"
	TimelineCancelled TimelineEventType = "CANCELLED"
	TimelineClosed    TimelineEventType = "CLOSED"
)

// TimelineEvent is one step of a trade's reconstructed history. The timeline
// is derived entirely from the trade's audit columns; nothing is stored.
type TimelineEvent struct {
	Type      TimelineEventType `json:"type"`
	Actor     string            `json:"actor,omitempty"`
	Timestamp *time.Time        `json:"timestamp,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Current   bool              `json:"current"`
}

// BuildTimeline reconstructs the lifecycle history of a trade from its audit
// fields. The first event is always the synthetic CREATED entry, followed by
// the forward stages in fixed order, each emitted only when its audit
// timestamp is set. A cancelled trade keeps every stage it completed before
// cancellation and ends with a terminal CANCELLED event carrying the reason.
// Exactly one event is marked current: the one matching the trade's stage.
func BuildTimeline(trade *models.Trade) []TimelineEvent {
	if trade == nil {
		return nil
	}

	createdAt := trade.CreatedAt
	events := []TimelineEvent{{
		Type:      TimelineCreated,
		Actor:     trade.CreatedByName,
		Timestamp: &createdAt,
		Current:   trade.TradeStage == enums.TradeStageDraft,
	}}

	steps := []struct {
		eventType TimelineEventType
		stage     enums.TradeStage
		at        *time.Time
		byName    *string
	}{
		{TimelineSubmitted, enums.TradeStageSubmitted, trade.SubmittedAt, trade.SubmittedByName},
		{TimelineApproved, enums.TradeStageApproved, trade.ApprovedAt, trade.ApprovedByName},
		{TimelineClosed, enums.TradeStageClosed, trade.ClosedAt, trade.ClosedByName},
	}
	for _, step := range steps {
		if step.at == nil {
			continue
		}
		events = append(events, TimelineEvent{
			Type:      step.eventType,
			Actor:     stringValue(step.byName),
			Timestamp: step.at,
			Current:   trade.TradeStage == step.stage,
		})
	}

	if trade.TradeStage == enums.TradeStageCancelled {
		reason := ""
		if trade.CancelReason != nil {
			reason = *trade.CancelReason
		}
		events = append(events, TimelineEvent{
			Type:      TimelineCancelled,
			Actor:     stringValue(trade.CancelledByName),
			Timestamp: trade.CancelledAt,
			Reason:    reason,
			Current:   true,
		})
	}
	return events
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
