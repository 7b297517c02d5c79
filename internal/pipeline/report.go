package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/opportunity-agent/internal/genai"
	"github.com/sells-group/opportunity-agent/internal/model"
)

// ReportSynthesizer writes the narrative research report and selects the
// structured recommendations.
type ReportSynthesizer struct {
	gen   genai.Generator
	limit int
}

// NewReportSynthesizer creates a ReportSynthesizer emitting at most limit
// recommendations. limit is clamped to [1, MaxRecommendations].
func NewReportSynthesizer(gen genai.Generator, limit int) *ReportSynthesizer {
	if limit <= 0 || limit > MaxRecommendations {
		limit = MaxRecommendations
	}
	return &ReportSynthesizer{gen: gen, limit: limit}
}

// Name implements Stage.
func (r *ReportSynthesizer) Name() string { return "recommendation_report" }

// Run implements Stage. On failure neither the report nor the
// recommendations are set.
func (r *ReportSynthesizer) Run(ctx context.Context, st model.PipelineState) model.PipelineState {
	if st.Failed() {
		return st
	}

	recs := TopRecommendations(st.ScoredOpportunities, r.limit)

	var profile model.CustomerProfile
	if st.Profile != nil {
		profile = *st.Profile
	}
	name := profile.Name
	if name == "" {
		name = "Unknown Customer"
	}
	bindings := map[string]any{
		"customer_id":     st.CustomerID,
		"customer_name":   name,
		"overview":        CustomerOverview(profile, st.FrequentProducts),
		"analysis":        DataAnalysis(st, MaxRecommendations),
		"recommendations": RecommendationList(recs),
	}

	system, err := render(reportSystemPrompt, bindings)
	if err != nil {
		return st.WithError(model.GenerativeError("render report prompt", err))
	}
	prompt, err := render(reportPrompt, bindings)
	if err != nil {
		return st.WithError(model.GenerativeError("render report prompt", err))
	}

	report, err := r.gen.Text(ctx, genai.TextRequest{
		Phase:  "report",
		System: system,
		Prompt: prompt,
	})
	if err != nil {
		return st.WithError(model.GenerativeError("generate report", err))
	}
	return st.WithReport(report, recs)
}

// TopRecommendations returns up to limit recommendations from scored, one per
// product, keeping score order.
func TopRecommendations(scored []model.ScoredOpportunity, limit int) []model.Recommendation {
	if limit <= 0 || limit > MaxRecommendations {
		limit = MaxRecommendations
	}
	seen := make(map[string]bool, limit)
	out := make([]model.Recommendation, 0, limit)
	for _, o := range scored {
		if len(out) >= limit {
			break
		}
		if seen[o.Product] {
			continue
		}
		seen[o.Product] = true
		out = append(out, model.Recommendation{Product: o.Product, Type: o.Type, Reason: o.Rationale})
	}
	return out
}

var usd = message.NewPrinter(language.English)

// CustomerOverview formats the profile block of the report.
func CustomerOverview(p model.CustomerProfile, frequent []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Industry: %s\n", orNA(p.Industry))
	b.WriteString("- Annual Revenue: " + usd.Sprintf("$%.0f", p.AnnualRevenue) + "\n")
	fmt.Fprintf(&b, "- Number of Employees: %d\n", p.EmployeeCount)
	fmt.Fprintf(&b, "- Location: %s\n", orNA(p.Location))
	fmt.Fprintf(&b, "- Customer Priority: %s\n", orNA(p.PriorityRating))
	fmt.Fprintf(&b, "- Account Type: %s\n", orNA(p.AccountType))
	recent := "None"
	if len(frequent) > 0 {
		recent = strings.Join(frequent, ", ")
	}
	fmt.Fprintf(&b, "- Recent Purchases: %s", recent)
	return b.String()
}

// DataAnalysis formats the findings block of the report, listing at most
// detail scored opportunities.
func DataAnalysis(st model.PipelineState, detail int) string {
	var b strings.Builder
	b.WriteString("Based on purchasing patterns:\n")

	if len(st.FrequentProducts) > 0 {
		fmt.Fprintf(&b, "- The customer frequently purchases: %s.\n", strings.Join(st.FrequentProducts, ", "))
	} else {
		b.WriteString("- The customer frequently purchases: No frequent products identified.\n")
	}

	if len(st.MissingOpportunities) > 0 {
		var industry string
		if st.Profile != nil {
			industry = st.Profile.Industry
		}
		fmt.Fprintf(&b, "- Benchmarking against industry peers in '%s' reveals products like: %s are commonly purchased by similar companies, representing potential missing opportunities for this customer.\n",
			industry, strings.Join(st.MissingOpportunities, ", "))
	} else {
		b.WriteString("- No significant missing product opportunities identified from industry peers.\n")
	}

	if len(st.AffinitySuggestions) > 0 {
		summaries := make([]string, 0, len(st.AffinitySuggestions))
		for _, s := range st.AffinitySuggestions {
			if s.SourceProduct != "" {
				summaries = append(summaries, fmt.Sprintf("%s (often co-purchased with %s)", s.Product, s.SourceProduct))
			} else {
				summaries = append(summaries, fmt.Sprintf("%s (%s)", s.Product, s.Rationale))
			}
		}
		fmt.Fprintf(&b, "- Product affinity analysis suggests complementary items: %s.\n", strings.Join(summaries, "; "))
	} else {
		b.WriteString("- No specific product affinities identified across the customer base.\n")
	}

	if len(st.ScoredOpportunities) == 0 {
		b.WriteString("\n  No specific cross-sell/upsell opportunities identified based on current data.")
		return b.String()
	}
	b.WriteString("\nDetailed insights from scored opportunities:\n")
	for i, o := range st.ScoredOpportunities {
		if i >= detail {
			break
		}
		fmt.Fprintf(&b, "  - %s (%s) - Score: %.2f. Rationale: %s\n", o.Product, o.Type, o.Score, o.Rationale)
	}
	return b.String()
}

// RecommendationList formats recs as a numbered list.
func RecommendationList(recs []model.Recommendation) string {
	if len(recs) == 0 {
		return "No specific recommendations could be generated at this time."
	}
	var b strings.Builder
	for i, r := range recs {
		fmt.Fprintf(&b, "%d. %s (Type: %s). Rationale: %s\n", i+1, r.Product, r.Type, r.Reason)
	}
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
