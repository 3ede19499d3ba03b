package dto

type ActionRequest struct {
	Action   string `json:"action" validate:"required,oneof=accepted rejected"`
	Feedback string `json:"feedback,omitempty"`
}

// ActionResponse reports the per-step outcome of applying a decision.
// Recorded and the two push steps succeed or fail independently; a failed
// push never reverts the recorded action.
type ActionResponse struct {
	Recommendation RecommendationResponse `json:"recommendation"`
	Recorded       bool                   `json:"recorded"`
	PriceUpdated   bool                   `json:"price_updated"`
	PriceError     string                 `json:"price_error,omitempty"`
	POSPushed      bool                   `json:"pos_pushed"`
	POSError       string                 `json:"pos_error,omitempty"`
}
