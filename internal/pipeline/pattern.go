package pipeline

import (
	"context"

	"github.com/sells-group/opportunity-agent/internal/model"
	"github.com/sells-group/opportunity-agent/internal/store"
)

// PatternAnalyzer finds the customer's distinct products and the products
// industry peers buy that the customer does not.
type PatternAnalyzer struct {
	store store.Reader
}

// NewPatternAnalyzer creates a PatternAnalyzer.
func NewPatternAnalyzer(st store.Reader) *PatternAnalyzer {
	return &PatternAnalyzer{store: st}
}

// Name implements Stage.
func (a *PatternAnalyzer) Name() string { return "purchase_patterns" }

// Run implements Stage.
func (a *PatternAnalyzer) Run(ctx context.Context, st model.PipelineState) model.PipelineState {
	if st.Failed() {
		return st
	}

	frequent := DistinctProducts(st.Purchases)

	var industry string
	if st.Profile != nil {
		industry = st.Profile.Industry
	}
	peers, err := a.store.PeerProducts(ctx, industry, st.CustomerID)
	if err != nil {
		return st.WithError(model.DataStoreError("load industry peer products", err))
	}

	return st.WithPatterns(frequent, subtract(peers, frequent))
}

// DistinctProducts returns the distinct products of purchases in first-seen
// order.
func DistinctProducts(purchases []model.PurchaseRecord) []string {
	seen := make(map[string]bool, len(purchases))
	out := make([]string, 0, len(purchases))
	for _, p := range purchases {
		if seen[p.Product] {
			continue
		}
		seen[p.Product] = true
		out = append(out, p.Product)
	}
	return out
}

// subtract returns the distinct items of from not in remove, order preserved.
func subtract(from, remove []string) []string {
	skip := toSet(remove)
	out := make([]string, 0, len(from))
	for _, p := range from {
		if skip[p] {
			continue
		}
		skip[p] = true
		out = append(out, p)
	}
	return out
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
