package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/opportunity-agent/internal/catalog"
	"github.com/sells-group/opportunity-agent/internal/genai"
	"github.com/sells-group/opportunity-agent/internal/model"
	"github.com/sells-group/opportunity-agent/internal/store"
)

// Partner is a product co-purchased with another, with the number of
// customers who bought both.
type Partner struct {
	Product string
	Count   int
}

// CoOccurrence counts, for each ordered pair of distinct products, how many
// customers purchased both. Counts are symmetric and self-pairs are never
// counted.
type CoOccurrence struct {
	counts   map[string]map[string]int
	partners map[string][]string // discovery order
}

// BuildCoOccurrence builds co-occurrence counts from (customer, product)
// pairs. Repeated purchases of a product by one customer count once.
func BuildCoOccurrence(pairs []model.CustomerProduct) *CoOccurrence {
	var customers []string
	byCustomer := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for _, p := range pairs {
		owned, ok := seen[p.CustomerID]
		if !ok {
			owned = make(map[string]bool)
			seen[p.CustomerID] = owned
			customers = append(customers, p.CustomerID)
		}
		if owned[p.Product] {
			continue
		}
		owned[p.Product] = true
		byCustomer[p.CustomerID] = append(byCustomer[p.CustomerID], p.Product)
	}

	co := &CoOccurrence{
		counts:   make(map[string]map[string]int),
		partners: make(map[string][]string),
	}
	for _, c := range customers {
		products := byCustomer[c]
		for i, a := range products {
			for j, b := range products {
				if i == j {
					continue
				}
				co.add(a, b)
			}
		}
	}
	return co
}

func (c *CoOccurrence) add(a, b string) {
	row := c.counts[a]
	if row == nil {
		row = make(map[string]int)
		c.counts[a] = row
	}
	if row[b] == 0 {
		c.partners[a] = append(c.partners[a], b)
	}
	row[b]++
}

// Count returns how many customers purchased both a and b.
func (c *CoOccurrence) Count(a, b string) int {
	return c.counts[a][b]
}

// Partners returns the products co-purchased with product, most frequent
// first. Ties keep discovery order.
func (c *CoOccurrence) Partners(product string) []Partner {
	names := c.partners[product]
	out := make([]Partner, len(names))
	for i, n := range names {
		out[i] = Partner{Product: n, Count: c.counts[product][n]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Suggest returns one suggestion per product co-purchased with any of owned
// and not itself owned. A candidate reachable from several owned products
// keeps its highest count; the first seen wins ties.
func (c *CoOccurrence) Suggest(owned []string) []model.AffinitySuggestion {
	skip := toSet(owned)
	index := make(map[string]int)
	var out []model.AffinitySuggestion

	for _, src := range owned {
		for _, p := range c.Partners(src) {
			if skip[p.Product] {
				continue
			}
			count := p.Count
			s := model.AffinitySuggestion{
				Product:           p.Product,
				Rationale:         fmt.Sprintf("Frequently co-purchased with '%s' (%d times by other customers).", src, count),
				CoOccurrenceCount: &count,
				SourceProduct:     src,
			}
			if i, ok := index[p.Product]; ok {
				if count > *out[i].CoOccurrenceCount {
					out[i] = s
				}
				continue
			}
			index[p.Product] = len(out)
			out = append(out, s)
		}
	}
	return out
}

// CoOccurrenceAffinity suggests products other customers buy alongside the
// customer's products.
type CoOccurrenceAffinity struct {
	store store.Reader
}

// NewCoOccurrenceAffinity creates a CoOccurrenceAffinity.
func NewCoOccurrenceAffinity(st store.Reader) *CoOccurrenceAffinity {
	return &CoOccurrenceAffinity{store: st}
}

// Name implements Stage.
func (a *CoOccurrenceAffinity) Name() string { return "product_affinity" }

// Run implements Stage.
func (a *CoOccurrenceAffinity) Run(ctx context.Context, st model.PipelineState) model.PipelineState {
	if st.Failed() {
		return st
	}
	pairs, err := a.store.PurchasePairs(ctx)
	if err != nil {
		return st.WithError(model.DataStoreError("load purchase pairs", err))
	}
	return st.WithAffinity(BuildCoOccurrence(pairs).Suggest(st.FrequentProducts))
}

// GenerativeAffinity asks the generative service for complementary products.
// Failures never fail the run: the stage logs and yields no suggestions.
type GenerativeAffinity struct {
	gen     genai.Generator
	catalog *catalog.Catalog
}

// NewGenerativeAffinity creates a GenerativeAffinity.
func NewGenerativeAffinity(gen genai.Generator, cat *catalog.Catalog) *GenerativeAffinity {
	if cat == nil {
		cat = catalog.Default()
	}
	return &GenerativeAffinity{gen: gen, catalog: cat}
}

// Name implements Stage.
func (a *GenerativeAffinity) Name() string { return "product_affinity" }

// Run implements Stage.
func (a *GenerativeAffinity) Run(ctx context.Context, st model.PipelineState) model.PipelineState {
	if st.Failed() {
		return st
	}
	if len(st.FrequentProducts) == 0 {
		return st.WithAffinity(nil)
	}

	log := zap.L().With(zap.String("run_id", st.RunID), zap.String("customer_id", st.CustomerID))

	var industry string
	if st.Profile != nil {
		industry = st.Profile.Industry
	}
	prompt, err := render(affinityPrompt, map[string]any{
		"industry": industry,
		"frequent": st.FrequentProducts,
		"catalog":  a.catalog.Products(),
	})
	if err != nil {
		log.Warn("pipeline: affinity prompt failed", zap.Error(err))
		AffinityFallbacks.Inc()
		return st.WithAffinity(nil)
	}

	var resp affinityResponse
	err = a.gen.Structured(ctx, genai.StructuredRequest{
		Phase:  "affinity",
		System: affinitySystemPrompt,
		Prompt: prompt,
		Schema: affinitySchema,
	}, &resp)
	if err != nil {
		log.Warn("pipeline: generative affinity failed, continuing without suggestions", zap.Error(err))
		AffinityFallbacks.Inc()
		return st.WithAffinity(nil)
	}

	owned := toSet(st.FrequentProducts)
	var out []model.AffinitySuggestion
	for _, s := range resp.Suggestions {
		product := strings.TrimSpace(s.Product)
		if product == "" || owned[product] {
			continue
		}
		owned[product] = true
		out = append(out, model.AffinitySuggestion{
			Product:   product,
			Rationale: strings.TrimSpace(s.Rationale),
		})
	}
	return st.WithAffinity(out)
}
