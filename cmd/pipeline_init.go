package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-agent/internal/catalog"
	"github.com/sells-group/opportunity-agent/internal/genai"
	"github.com/sells-group/opportunity-agent/internal/pipeline"
	"github.com/sells-group/opportunity-agent/internal/resilience"
	"github.com/sells-group/opportunity-agent/internal/store"
	anthropicpkg "github.com/sells-group/opportunity-agent/pkg/anthropic"
	"github.com/sells-group/opportunity-agent/pkg/bedrock"
)

// pipelineEnv holds the store, generative service, and pipeline shared by
// the serve and recommend commands.
type pipelineEnv struct {
	Store    store.Store
	GenAI    *genai.Service
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates config for mode, opens the store, builds the
// generative backend, and assembles the Pipeline. Callers should defer
// env.Close().
//
// Startup fails if the store cannot be reached or migrated; the per-request
// ping in the API only covers outages after a successful boot.
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	cat, err := initCatalog()
	if err != nil {
		return nil, err
	}

	backend, err := initBackend(ctx)
	if err != nil {
		return nil, err
	}
	svc := genai.NewService(backend, genai.ServiceConfig{
		MaxTokens:         cfg.GenAI.MaxTokens,
		Temperature:       cfg.GenAI.Temperature,
		RequestsPerSecond: cfg.GenAI.RequestsPerSecond,
		Breaker:           resilience.NewCircuitConfig(cfg.GenAI.BreakerThreshold, cfg.GenAI.BreakerResetSecs),
	})

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	p, err := pipeline.New(pipeline.Config{
		AffinityStrategy:   cfg.Pipeline.AffinityStrategy,
		ScoringStrategy:    cfg.Pipeline.ScoringStrategy,
		MaxRecommendations: cfg.Pipeline.MaxRecommendations,
	}, st, svc, cat)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	zap.L().Info("pipeline initialized",
		zap.String("backend", backend.Name()),
		zap.String("store", cfg.Store.Driver),
		zap.Strings("stages", p.StageNames()),
		zap.String("affinity", cfg.Pipeline.AffinityStrategy),
		zap.String("scoring", cfg.Pipeline.ScoringStrategy),
		zap.Int("catalog_products", cat.Len()),
	)

	return &pipelineEnv{Store: st, GenAI: svc, Pipeline: p}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, store.Config{
		Driver:         cfg.Store.Driver,
		DatabaseURL:    cfg.Store.DatabaseURL,
		ConnectTimeout: cfg.Store.ConnectTimeout(),
		Pool: &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		},
	})
}

func initCatalog() (*catalog.Catalog, error) {
	if cfg.Pipeline.CatalogPath == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(cfg.Pipeline.CatalogPath)
	if err != nil {
		return nil, eris.Wrap(err, "load product catalog")
	}
	return cat, nil
}

func initBackend(ctx context.Context) (genai.Backend, error) {
	switch cfg.GenAI.Provider {
	case "anthropic":
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		return genai.NewAnthropicBackend(client, cfg.Anthropic.Model), nil
	case "bedrock":
		client, err := bedrock.NewClient(ctx, bedrock.Config{
			Region:          cfg.Bedrock.Region,
			ModelID:         cfg.Bedrock.ModelID,
			AccessKeyID:     cfg.Bedrock.AccessKeyID,
			SecretAccessKey: cfg.Bedrock.SecretAccessKey,
			Endpoint:        cfg.Bedrock.Endpoint,
		})
		if err != nil {
			return nil, eris.Wrap(err, "init bedrock client")
		}
		return genai.NewBedrockBackend(client, cfg.Bedrock.ModelID), nil
	default:
		return nil, eris.Errorf("unsupported genai provider: %s", cfg.GenAI.Provider)
	}
}
