package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sells-group/opportunity-agent/internal/catalog"
	"github.com/sells-group/opportunity-agent/internal/genai"
	"github.com/sells-group/opportunity-agent/internal/model"
)

// Heuristic weights.
const (
	peerGapBase       = 0.7
	affinityBase      = 0.6
	upsellBoost       = 0.1
	peerAffinityBoost = 0.2
	perCoPurchase     = 0.005
	maxCoPurchase     = 0.2
)

// HeuristicScorer ranks peer-gap and affinity candidates with fixed weights.
type HeuristicScorer struct {
	catalog *catalog.Catalog
}

// NewHeuristicScorer creates a HeuristicScorer. A nil cat selects the
// built-in catalog.
func NewHeuristicScorer(cat *catalog.Catalog) *HeuristicScorer {
	if cat == nil {
		cat = catalog.Default()
	}
	return &HeuristicScorer{catalog: cat}
}

// Name implements Stage.
func (s *HeuristicScorer) Name() string { return "opportunity_scoring" }

// Run implements Stage.
func (s *HeuristicScorer) Run(_ context.Context, st model.PipelineState) model.PipelineState {
	if st.Failed() {
		return st
	}
	var industry string
	if st.Profile != nil {
		industry = st.Profile.Industry
	}
	return st.WithScores(s.Score(industry, st.FrequentProducts, st.MissingOpportunities, st.AffinitySuggestions))
}

// Score ranks every product in missing or affinity that is not in frequent.
// The result holds one entry per product, sorted by score descending.
func (s *HeuristicScorer) Score(industry string, frequent, missing []string, affinity []model.AffinitySuggestion) []model.ScoredOpportunity {
	owned := s.catalog.Categories(frequent)
	skip := toSet(frequent)

	related := make(map[string]model.AffinitySuggestion, len(affinity))
	for _, a := range affinity {
		if _, ok := related[a.Product]; !ok {
			related[a.Product] = a
		}
	}

	var out []model.ScoredOpportunity
	index := make(map[string]int)
	keep := func(o model.ScoredOpportunity) {
		if i, ok := index[o.Product]; ok {
			if o.Score > out[i].Score {
				out[i] = o
			}
			return
		}
		index[o.Product] = len(out)
		out = append(out, o)
	}

	for _, product := range missing {
		if skip[product] {
			continue
		}
		typ, relation := s.classify(product, owned)
		score := peerGapBase
		if typ == model.OpportunityUpsell {
			score += upsellBoost
		}
		reasons := []string{relation, fmt.Sprintf("Many peers in '%s' industry purchase '%s'.", industry, product)}
		if a, ok := related[product]; ok {
			score += peerAffinityBoost
			reasons = append(reasons, a.Rationale)
		}
		keep(model.ScoredOpportunity{Product: product, Type: typ, Score: round(score), Rationale: joinReasons(reasons)})
	}

	for _, a := range affinity {
		if skip[a.Product] {
			continue
		}
		typ, relation := s.classify(a.Product, owned)
		score := affinityBase
		if a.CoOccurrenceCount != nil {
			score += math.Min(float64(*a.CoOccurrenceCount)*perCoPurchase, maxCoPurchase)
		}
		keep(model.ScoredOpportunity{Product: a.Product, Type: typ, Score: round(score), Rationale: joinReasons([]string{relation, a.Rationale})})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func (s *HeuristicScorer) classify(product string, owned []catalog.Category) (model.OpportunityType, string) {
	cat := s.catalog.Lookup(product)
	if catalog.MatchesAny(cat, owned) {
		return model.OpportunityUpsell, fmt.Sprintf("Customer already purchases items in the '%s' category, suggesting an upsell.", cat)
	}
	return model.OpportunityCrossSell, fmt.Sprintf("Product is in a new category ('%s'), indicating a cross-sell opportunity.", cat)
}

func joinReasons(parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// round trims float noise from summed weights (0.7+0.1+0.2).
func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// GenerativeScorer asks the generative service to rank opportunities. A
// failed call fails the run.
type GenerativeScorer struct {
	gen genai.Generator
}

// NewGenerativeScorer creates a GenerativeScorer.
func NewGenerativeScorer(gen genai.Generator) *GenerativeScorer {
	return &GenerativeScorer{gen: gen}
}

// Name implements Stage.
func (s *GenerativeScorer) Name() string { return "opportunity_scoring" }

// Run implements Stage.
func (s *GenerativeScorer) Run(ctx context.Context, st model.PipelineState) model.PipelineState {
	if st.Failed() {
		return st
	}

	bindings := map[string]any{
		"frequent": st.FrequentProducts,
		"missing":  st.MissingOpportunities,
		"affinity": affinityLines(st.AffinitySuggestions),
	}
	if p := st.Profile; p != nil {
		bindings["name"] = p.Name
		bindings["industry"] = p.Industry
		bindings["account_type"] = p.AccountType
		bindings["priority"] = p.PriorityRating
	}
	prompt, err := render(scoringPrompt, bindings)
	if err != nil {
		return st.WithError(model.GenerativeError("render scoring prompt", err))
	}

	var resp scoringResponse
	err = s.gen.Structured(ctx, genai.StructuredRequest{
		Phase:  "scoring",
		System: scoringSystemPrompt,
		Prompt: prompt,
		Schema: scoringSchema,
	}, &resp)
	if err != nil {
		return st.WithError(model.GenerativeError("score opportunities", err))
	}

	skip := toSet(st.FrequentProducts)
	index := make(map[string]int)
	var out []model.ScoredOpportunity
	for _, o := range resp.Opportunities {
		product := strings.TrimSpace(o.Product)
		if product == "" || skip[product] {
			continue
		}
		typ, err := model.ParseOpportunityType(o.Type)
		if err != nil {
			return st.WithError(model.GenerativeError("score opportunities", err))
		}
		scored := model.ScoredOpportunity{
			Product:   product,
			Type:      typ,
			Score:     float64(o.Score),
			Rationale: strings.TrimSpace(o.Rationale),
		}
		if i, ok := index[product]; ok {
			if scored.Score > out[i].Score {
				out[i] = scored
			}
			continue
		}
		index[product] = len(out)
		out = append(out, scored)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return st.WithScores(out)
}

func affinityLines(suggestions []model.AffinitySuggestion) []string {
	lines := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		lines = append(lines, s.Product+": "+s.Rationale)
	}
	return lines
}
