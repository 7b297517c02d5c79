// Package pipeline computes cross-sell and upsell recommendations for one
// customer by running a fixed sequence of stages over purchase history.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-agent/internal/catalog"
	"github.com/sells-group/opportunity-agent/internal/genai"
	"github.com/sells-group/opportunity-agent/internal/model"
	"github.com/sells-group/opportunity-agent/internal/store"
)

// PlaceholderReport is reported in place of a research report when a run
// fails.
const PlaceholderReport = "Report not generated due to an internal error."

// MaxRecommendations caps the structured recommendation list.
const MaxRecommendations = 5

// Strategy names accepted by Config.
const (
	AffinityCoOccurrence = "cooccurrence"
	AffinityGenerative   = "generative"
	ScoringHeuristic     = "heuristic"
	ScoringGenerative    = "generative"
)

// Stage is one step of the pipeline. Run must return st unchanged when st
// already carries an error, and must never modify st in place.
type Stage interface {
	Name() string
	Run(ctx context.Context, st model.PipelineState) model.PipelineState
}

// Config selects the pipeline strategies.
type Config struct {
	AffinityStrategy   string
	ScoringStrategy    string
	MaxRecommendations int
}

// Pipeline runs stages in a fixed order and stops at the first error.
// Safe for concurrent use when its stages are.
type Pipeline struct {
	stages []Stage
	newID  func() string
}

// New builds the standard five-stage pipeline. gen is always required since
// the report stage uses it. A nil cat selects the built-in catalog.
func New(cfg Config, st store.Reader, gen genai.Generator, cat *catalog.Catalog) (*Pipeline, error) {
	if st == nil {
		return nil, eris.New("pipeline: store is required")
	}
	if gen == nil {
		return nil, eris.New("pipeline: generator is required")
	}
	if cat == nil {
		cat = catalog.Default()
	}

	var affinity Stage
	switch cfg.AffinityStrategy {
	case AffinityCoOccurrence, "":
		affinity = NewCoOccurrenceAffinity(st)
	case AffinityGenerative:
		affinity = NewGenerativeAffinity(gen, cat)
	default:
		return nil, eris.Errorf("pipeline: unknown affinity strategy %q", cfg.AffinityStrategy)
	}

	var scorer Stage
	switch cfg.ScoringStrategy {
	case ScoringHeuristic, "":
		scorer = NewHeuristicScorer(cat)
	case ScoringGenerative:
		scorer = NewGenerativeScorer(gen)
	default:
		return nil, eris.Errorf("pipeline: unknown scoring strategy %q", cfg.ScoringStrategy)
	}

	return NewWithStages(
		NewContextLoader(st),
		NewPatternAnalyzer(st),
		affinity,
		scorer,
		NewReportSynthesizer(gen, cfg.MaxRecommendations),
	), nil
}

// NewWithStages creates a Pipeline running the given stages in order.
func NewWithStages(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, newID: uuid.NewString}
}

// StageNames returns the stage names in execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run executes the pipeline for customerID. The returned state carries either
// the full result or the first error; partial results of a failed run must
// not be reported.
func (p *Pipeline) Run(ctx context.Context, customerID string) model.PipelineState {
	runID := p.newID()
	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("customer_id", customerID),
	)
	start := time.Now()

	state := model.NewPipelineState(runID, customerID)
	for _, stage := range p.stages {
		name := stage.Name()
		stageStart := time.Now()
		state = stage.Run(ctx, state)
		elapsed := time.Since(stageStart)
		StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())

		if state.Failed() {
			log.Warn("pipeline: stage failed",
				zap.String("stage", name),
				zap.Int64("duration_ms", elapsed.Milliseconds()),
				zap.String("kind", string(state.Err.Kind)),
				zap.Error(state.Err),
			)
			break
		}
		log.Debug("pipeline: stage complete",
			zap.String("stage", name),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
		)
	}

	outcome := "ok"
	if state.Failed() {
		outcome = string(state.Err.Kind)
	}
	RunsTotal.WithLabelValues(outcome).Inc()
	RunDuration.Observe(time.Since(start).Seconds())
	if !state.Failed() {
		RecommendationsEmitted.Observe(float64(len(state.Recommendations)))
	}

	log.Info("pipeline: run complete",
		zap.String("outcome", outcome),
		zap.Int("recommendations", len(state.Recommendations)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return state
}
