package events

import (
	"time"

	"github.com/gtmhq/gtm-advisor/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserTierChanged   EventType = "user_tier_changed"
	EventUserDeactivated   EventType = "user_deactivated"
	EventAnalysisCompleted EventType = "analysis_completed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TierChangedPayload payload.
type TierChangedPayload struct {
	OldTier domain.Tier `json:"old_tier"`
	NewTier domain.Tier `json:"new_tier"`
}

// AnalysisCompletedPayload payload.
type AnalysisCompletedPayload struct {
	JobID     string                `json:"job_id"`
	CompanyID string                `json:"company_id"`
	Status    domain.AnalysisStatus `json:"status"`
}
