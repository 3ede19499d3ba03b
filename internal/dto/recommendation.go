package dto

import (
	"encoding/json"
	"strconv"
)

// FlexNumber captures a numeric wire field that may arrive either as a
// JSON number or as a formatted string (e.g. "$1,299.00"). The raw token
// is kept verbatim; the reconciler owns parsing and normalization.
type FlexNumber string

func (f *FlexNumber) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexNumber(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexNumber(n.String())
	return nil
}

func (f FlexNumber) MarshalJSON() ([]byte, error) {
	if v, err := strconv.ParseFloat(string(f), 64); err == nil {
		return json.Marshal(v)
	}
	return json.Marshal(string(f))
}

func (f FlexNumber) String() string { return string(f) }

// RawRecommendation is one recommendation as delivered in a job result
// payload, before normalization.
type RawRecommendation struct {
	ID                 string     `json:"id,omitempty"`
	ItemID             string     `json:"item_id"`
	ItemName           string     `json:"item_name"`
	CurrentPrice       FlexNumber `json:"current_price"`
	RecommendedPrice   FlexNumber `json:"recommended_price"`
	ChangePercent      FlexNumber `json:"change_percent,omitempty"`
	Rationale          string     `json:"rationale,omitempty"`
	RecommendationDate string     `json:"recommendation_date,omitempty"`
	ReevaluationDate   string     `json:"reevaluation_date,omitempty"`
	UserAction         string     `json:"user_action,omitempty"`
	UserFeedback       string     `json:"user_feedback,omitempty"`
}

type RecommendationResponse struct {
	ID                 string  `json:"id"`
	ItemID             string  `json:"item_id"`
	ItemName           string  `json:"item_name"`
	CurrentPrice       float64 `json:"current_price"`
	RecommendedPrice   float64 `json:"recommended_price"`
	ChangeAmount       float64 `json:"change_amount"`
	ChangePercent      float64 `json:"change_percent"`         // fraction
	ChangePercentDisplay float64 `json:"change_percent_display"` // whole percent, for rendering
	Rationale          string  `json:"rationale"`
	BatchID            string  `json:"batch_id"`
	RecommendationDate string  `json:"recommendation_date"`
	ReevaluationDate   string  `json:"reevaluation_date,omitempty"`
	UserAction         string  `json:"user_action,omitempty"`
	UserFeedback       string  `json:"user_feedback,omitempty"`
}

type RecommendationListResponse struct {
	Recommendations []RecommendationResponse `json:"recommendations"`
	BatchID         string                   `json:"batch_id,omitempty"`
	FromCache       bool                     `json:"from_cache"`
}

type BatchResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	ItemCount int    `json:"item_count"`
	Selected  bool   `json:"selected"`
}
