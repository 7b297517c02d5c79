package genai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/opportunity-agent/internal/resilience"
	"github.com/sells-group/opportunity-agent/pkg/anthropic"
)

// ServiceConfig tunes a Service.
type ServiceConfig struct {
	MaxTokens   int64
	Temperature float64
	// RequestsPerSecond limits outbound calls; <= 0 disables the limiter.
	RequestsPerSecond float64
	Breaker           resilience.CircuitBreakerConfig
}

// Service implements Generator over a Backend. Safe for concurrent use.
type Service struct {
	backend Backend
	cfg     ServiceConfig
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

var _ Generator = (*Service)(nil)

// NewService creates a Service.
func NewService(backend Backend, cfg ServiceConfig) *Service {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	name := backend.Name()
	breakerCfg := cfg.Breaker
	breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("genai: circuit state change",
			zap.String("backend", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return &Service{
		backend: backend,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		breaker: resilience.NewCircuitBreaker(breakerCfg),
	}
}

// Text implements Generator.
func (s *Service) Text(ctx context.Context, req TextRequest) (string, error) {
	res, err := s.complete(ctx, req.Phase, req.System, req.Prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		s.observe(req.Phase, "empty")
		return "", eris.Wrapf(ErrEmptyResponse, "genai: %s", req.Phase)
	}
	s.observe(req.Phase, "ok")
	return text, nil
}

// Structured implements Generator.
func (s *Service) Structured(ctx context.Context, req StructuredRequest, out any) error {
	if req.Schema == nil {
		return eris.Errorf("genai: %s: structured request without schema", req.Phase)
	}

	prompt := req.Prompt + "\n\nRespond with only a JSON object matching this JSON schema:\n" + req.Schema.Source()
	res, err := s.complete(ctx, req.Phase, req.System, prompt)
	if err != nil {
		return err
	}

	raw := cleanJSON(res.Text)
	if raw == "" {
		s.observe(req.Phase, "empty")
		return eris.Wrapf(ErrEmptyResponse, "genai: %s", req.Phase)
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		s.observe(req.Phase, "invalid")
		return eris.Wrapf(ErrSchemaValidation, "%s: malformed JSON: %v", req.Phase, err)
	}
	if err := req.Schema.Validate(doc); err != nil {
		s.observe(req.Phase, "invalid")
		zap.L().Debug("genai: schema validation failed",
			zap.String("phase", req.Phase),
			zap.String("raw", raw),
			zap.Error(err),
		)
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		s.observe(req.Phase, "invalid")
		return eris.Wrapf(ErrSchemaValidation, "%s: decode: %v", req.Phase, err)
	}

	s.observe(req.Phase, "ok")
	return nil
}

func (s *Service) complete(ctx context.Context, phase, system, prompt string) (*CompletionResult, error) {
	name := s.backend.Name()
	if err := s.limiter.Wait(ctx); err != nil {
		s.observe(phase, resilience.Classify(err))
		return nil, eris.Wrapf(err, "genai: %s: rate limit wait", phase)
	}

	start := time.Now()
	res, err := resilience.ExecuteVal(ctx, s.breaker, func(ctx context.Context) (*CompletionResult, error) {
		return s.backend.Complete(ctx, Completion{
			System:      system,
			Prompt:      prompt,
			MaxTokens:   s.cfg.MaxTokens,
			Temperature: s.cfg.Temperature,
		})
	})
	RequestDuration.WithLabelValues(name, phase).Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := resilience.Classify(err)
		s.observe(phase, outcome)
		zap.L().Warn("genai: completion failed",
			zap.String("backend", name),
			zap.String("phase", phase),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, eris.Wrapf(err, "genai: %s: %s unavailable", phase, name)
		}
		return nil, eris.Wrapf(err, "genai: %s", phase)
	}

	TokensTotal.WithLabelValues(name, "input").Add(float64(res.InputTokens))
	TokensTotal.WithLabelValues(name, "output").Add(float64(res.OutputTokens))
	anthropic.TokenUsage{InputTokens: res.InputTokens, OutputTokens: res.OutputTokens}.LogCost(res.Model, phase)
	return res, nil
}

func (s *Service) observe(phase, outcome string) {
	RequestsTotal.WithLabelValues(s.backend.Name(), phase, outcome).Inc()
}
