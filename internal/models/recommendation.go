package models

import (
	"time"

	"github.com/google/uuid"
)

type UserAction string

const (
	ActionAccepted UserAction = "accepted"
	ActionRejected UserAction = "rejected"
)

// IsValidAction returns true if the string is a valid UserAction
func IsValidAction(s string) bool {
	switch UserAction(s) {
	case ActionAccepted, ActionRejected:
		return true
	default:
		return false
	}
}

// Recommendation is a proposed price change for one catalog item.
// ChangeAmount is always derived from RecommendedPrice - CurrentPrice
// and is never edited independently.
type Recommendation struct {
	ID                 uuid.UUID   `json:"id"`
	ItemID             string      `json:"item_id"`
	ItemName           string      `json:"item_name"`
	CurrentPrice       float64     `json:"current_price"`
	RecommendedPrice   float64     `json:"recommended_price"`
	ChangeAmount       float64     `json:"change_amount"`
	ChangePercent      float64     `json:"change_percent"` // fraction, 0.05 == 5%
	Rationale          string      `json:"rationale"`
	BatchID            uuid.UUID   `json:"batch_id"`
	RecommendationDate time.Time   `json:"recommendation_date"`
	ReevaluationDate   *time.Time  `json:"reevaluation_date,omitempty"`
	UserAction         *UserAction `json:"user_action,omitempty"`
	UserFeedback       string      `json:"user_feedback,omitempty"`

	// ActionSynced is false while a locally-applied UserAction has not yet
	// been confirmed by the backend. Merge preserves unsynced actions.
	ActionSynced bool `json:"action_synced,omitempty"`
}

// Pending reports whether the recommendation still awaits a user decision.
func (r *Recommendation) Pending() bool {
	return r.UserAction == nil
}

// ApplyAction records a local user decision on the recommendation.
func (r *Recommendation) ApplyAction(action UserAction, feedback string) {
	a := action
	r.UserAction = &a
	r.UserFeedback = feedback
	r.ActionSynced = false
}

// ConfirmAction marks the recorded action as round-tripped to the backend.
func (r *Recommendation) ConfirmAction() {
	r.ActionSynced = true
}
