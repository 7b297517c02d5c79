package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-agent/internal/model"
	"github.com/sells-group/opportunity-agent/internal/pipeline"
)

type runnerFunc func(ctx context.Context, customerID string) model.PipelineState

func (f runnerFunc) Run(ctx context.Context, customerID string) model.PipelineState {
	return f(ctx, customerID)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func succeed(ctx context.Context, customerID string) model.PipelineState {
	return model.NewPipelineState("run-1", customerID).WithReport("Research Report", []model.Recommendation{
		{Product: "Generators", Type: model.OpportunityUpsell, Reason: "Many peers buy it."},
	})
}

func failWith(err *model.PipelineError) runnerFunc {
	return func(ctx context.Context, customerID string) model.PipelineState {
		return model.NewPipelineState("run-1", customerID).WithError(err)
	}
}

func serve(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestRecommendation_OK(t *testing.T) {
	srv := NewServer(Config{}, runnerFunc(succeed), fakePinger{})

	rec, body := serve(t, srv, "/recommendation/C1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "C1", body["customer_id"])
	assert.Equal(t, "Research Report", body["research_report"])
	assert.Nil(t, body["error"])
	recs := body["recommendations"].([]any)
	require.Len(t, recs, 1)
	assert.Equal(t, map[string]any{"product": "Generators", "type": "Upsell", "reason": "Many peers buy it."}, recs[0])
}

func TestRecommendation_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *model.PipelineError
		wantStatus int
		wantError  string
	}{
		{
			name:       "not found",
			err:        model.NotFoundError("customer id not found"),
			wantStatus: http.StatusNotFound,
			wantError:  "customer id not found",
		},
		{
			name:       "data store",
			err:        model.DataStoreError("load industry peer products", errors.New("conn reset")),
			wantStatus: http.StatusInternalServerError,
			wantError:  "data_store_failure: load industry peer products",
		},
		{
			name:       "generative",
			err:        model.GenerativeError("generate report", errors.New("timeout")),
			wantStatus: http.StatusInternalServerError,
			wantError:  "generative_service_failure: generate report",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(Config{}, failWith(tt.err), fakePinger{})

			rec, body := serve(t, srv, "/recommendation/C9")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "C9", body["customer_id"])
			assert.Equal(t, pipeline.PlaceholderReport, body["research_report"])
			assert.Equal(t, []any{}, body["recommendations"])
			assert.Equal(t, tt.wantError, body["error"])
			assert.NotContains(t, rec.Body.String(), "conn reset")
		})
	}
}

func TestRecommendation_StoreUnavailable(t *testing.T) {
	called := false
	runner := runnerFunc(func(ctx context.Context, id string) model.PipelineState {
		called = true
		return succeed(ctx, id)
	})
	srv := NewServer(Config{}, runner, fakePinger{err: errors.New("connection refused")})

	rec, body := serve(t, srv, "/recommendation/C1")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "data store unavailable", body["error"])
	assert.Equal(t, pipeline.PlaceholderReport, body["research_report"])
	assert.False(t, called, "pipeline must not run when the store is down")
}

func TestRecommendation_InvalidCustomerID(t *testing.T) {
	srv := NewServer(Config{}, runnerFunc(succeed), fakePinger{})

	long := strings.Repeat("x", 65)
	rec, body := serve(t, srv, "/recommendation/"+long)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid customer id", body["error"])
}

func TestRecommendation_WhitespaceCustomerID(t *testing.T) {
	ran := false
	runner := runnerFunc(func(ctx context.Context, id string) model.PipelineState {
		ran = true
		return succeed(ctx, id)
	})
	srv := NewServer(Config{}, runner, fakePinger{})

	for _, path := range []string{"/recommendation/%20", "/recommendation/%20%20%09"} {
		rec, body := serve(t, srv, path)

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "invalid customer id", body["error"], path)
	}
	assert.False(t, ran, "pipeline must not run for a blank id")
}

func TestRecommendation_RequestTimeoutApplied(t *testing.T) {
	var deadline time.Time
	runner := runnerFunc(func(ctx context.Context, id string) model.PipelineState {
		deadline, _ = ctx.Deadline()
		return succeed(ctx, id)
	})
	srv := NewServer(Config{RequestTimeout: time.Minute}, runner, fakePinger{})

	rec, _ := serve(t, srv, "/recommendation/C1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestRecommendation_RateLimited(t *testing.T) {
	srv := NewServer(Config{RateLimitPerMinute: 1}, runnerFunc(succeed), fakePinger{})
	router := srv.Router()

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/recommendation/C1", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}

func TestHealth(t *testing.T) {
	rec, body := serve(t, NewServer(Config{}, runnerFunc(succeed), fakePinger{}), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = serve(t, NewServer(Config{}, runnerFunc(succeed), fakePinger{err: errors.New("down")}), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(Config{}, runnerFunc(succeed), fakePinger{})
	serve(t, srv, "/recommendation/C1")

	rec, _ := serve(t, srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `opportunity_api_requests_total{method="GET",route="/recommendation/{customer_id}",status="200"}`)
}

func TestCORSPreflight(t *testing.T) {
	srv := NewServer(Config{CORSOrigins: []string{"https://sales.example.com"}}, runnerFunc(succeed), fakePinger{})

	req := httptest.NewRequest(http.MethodOptions, "/recommendation/C1", nil)
	req.Header.Set("Origin", "https://sales.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, "https://sales.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewResponse_NilRecommendationsEncodeAsEmptyList(t *testing.T) {
	resp := NewResponse(model.NewPipelineState("r", "C1").WithReport("report", nil))

	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"customer_id":"C1","research_report":"report","recommendations":[],"error":null}`, string(b))
}
