// Package api exposes the recommendation pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-agent/internal/model"
)

// Runner executes one recommendation run.
type Runner interface {
	Run(ctx context.Context, customerID string) model.PipelineState
}

// Pinger reports whether the data store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config tunes the router.
type Config struct {
	// RateLimitPerMinute caps requests per client IP; <= 0 disables it.
	RateLimitPerMinute int
	CORSOrigins        []string
	// RequestTimeout bounds a pipeline run; <= 0 means no limit.
	RequestTimeout time.Duration
}

// Server holds the HTTP handlers.
type Server struct {
	cfg      Config
	runner   Runner
	store    Pinger
	validate *validator.Validate
}

// NewServer creates a Server.
func NewServer(cfg Config, runner Runner, store Pinger) *Server {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &Server{
		cfg:      cfg,
		runner:   runner,
		store:    store,
		validate: v,
	}
}

// Router builds the chi router with middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimitPerMinute > 0 {
			r.Use(httprate.Limit(
				s.cfg.RateLimitPerMinute,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				}),
			))
		}
		r.Get("/recommendation/{customer_id}", s.handleRecommendation)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("api: health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type recommendationParams struct {
	CustomerID string `validate:"required,notblank,max=64,printascii"`
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customer_id")
	log := zap.L().With(
		zap.String("customer_id", customerID),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)

	if err := s.validate.Struct(recommendationParams{CustomerID: customerID}); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse(customerID, "invalid customer id"))
		return
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	if err := s.store.Ping(ctx); err != nil {
		log.Error("api: data store unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse(customerID, "data store unavailable"))
		return
	}

	state := s.runner.Run(ctx, customerID)
	if state.Failed() {
		status := statusFor(state.Err)
		log.Warn("api: recommendation failed",
			zap.Int("status", status),
			zap.String("kind", string(state.Err.Kind)),
			zap.Error(state.Err),
		)
		writeJSON(w, status, NewResponse(state))
		return
	}

	writeJSON(w, http.StatusOK, NewResponse(state))
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err *model.PipelineError) int {
	switch err.Kind {
	case model.ErrorKindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}
