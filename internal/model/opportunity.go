package model

import "github.com/rotisserie/eris"

// OpportunityType classifies a recommendation relative to what the customer
// already buys.
type OpportunityType string

const (
	OpportunityCrossSell OpportunityType = "Cross-Sell"
	OpportunityUpsell    OpportunityType = "Upsell"
)

// ParseOpportunityType converts a wire value into an OpportunityType.
func ParseOpportunityType(s string) (OpportunityType, error) {
	switch OpportunityType(s) {
	case OpportunityCrossSell, OpportunityUpsell:
		return OpportunityType(s), nil
	default:
		return "", eris.Errorf("model: unknown opportunity type %q", s)
	}
}

// AffinitySuggestion is a candidate complementary product. CoOccurrenceCount
// and SourceProduct are only set by the co-occurrence strategy.
type AffinitySuggestion struct {
	Product           string `json:"product"`
	Rationale         string `json:"rationale"`
	CoOccurrenceCount *int   `json:"co_occurrence_count,omitempty"`
	SourceProduct     string `json:"suggested_for,omitempty"`
}

// ScoredOpportunity is a ranked cross-sell or upsell candidate.
type ScoredOpportunity struct {
	Product   string          `json:"product"`
	Type      OpportunityType `json:"type"`
	Score     float64         `json:"score"`
	Rationale string          `json:"rationale"`
}

// Recommendation is the externally reported form of a ScoredOpportunity.
type Recommendation struct {
	Product string          `json:"product"`
	Type    OpportunityType `json:"type"`
	Reason  string          `json:"reason"`
}
