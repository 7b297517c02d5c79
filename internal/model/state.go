package model

// PipelineState is the record threaded through the recommendation stages.
// Stages never mutate a received state: each returns a copy with only its own
// fields set. Slices held by a state are treated as read-only.
type PipelineState struct {
	RunID      string `json:"run_id"`
	CustomerID string `json:"customer_id"`

	Profile   *CustomerProfile `json:"customer_profile,omitempty"`
	Purchases []PurchaseRecord `json:"customer_purchase_history,omitempty"`

	FrequentProducts     []string `json:"frequent_products,omitempty"`
	MissingOpportunities []string `json:"missing_opportunities_products,omitempty"`

	AffinitySuggestions []AffinitySuggestion `json:"related_product_suggestions,omitempty"`
	ScoredOpportunities []ScoredOpportunity  `json:"scored_opportunities,omitempty"`

	Report          string           `json:"research_report,omitempty"`
	Recommendations []Recommendation `json:"recommendations_structured,omitempty"`

	Err *PipelineError `json:"-"`
}

// NewPipelineState returns the initial state for a run.
func NewPipelineState(runID, customerID string) PipelineState {
	return PipelineState{RunID: runID, CustomerID: customerID}
}

// Failed reports whether the state carries an error.
func (s PipelineState) Failed() bool {
	return s.Err != nil
}

// WithError returns a copy of s carrying err. An existing error is never
// replaced.
func (s PipelineState) WithError(err *PipelineError) PipelineState {
	if s.Err != nil {
		return s
	}
	s.Err = err
	return s
}

// WithContext returns a copy of s with the loaded profile and purchases.
func (s PipelineState) WithContext(profile CustomerProfile, purchases []PurchaseRecord) PipelineState {
	s.Profile = &profile
	s.Purchases = purchases
	return s
}

// WithPatterns returns a copy of s with the purchase-pattern analysis.
func (s PipelineState) WithPatterns(frequent, missing []string) PipelineState {
	s.FrequentProducts = frequent
	s.MissingOpportunities = missing
	return s
}

// WithAffinity returns a copy of s with affinity suggestions.
func (s PipelineState) WithAffinity(suggestions []AffinitySuggestion) PipelineState {
	s.AffinitySuggestions = suggestions
	return s
}

// WithScores returns a copy of s with scored opportunities.
func (s PipelineState) WithScores(scored []ScoredOpportunity) PipelineState {
	s.ScoredOpportunities = scored
	return s
}

// WithReport returns a copy of s with the final report and recommendations.
func (s PipelineState) WithReport(report string, recs []Recommendation) PipelineState {
	s.Report = report
	s.Recommendations = recs
	return s
}

// IsFrequent reports whether product is among the customer's purchased products.
func (s PipelineState) IsFrequent(product string) bool {
	for _, p := range s.FrequentProducts {
		if p == product {
			return true
		}
	}
	return false
}
