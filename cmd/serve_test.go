package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-agent/internal/api"
	"github.com/sells-group/opportunity-agent/internal/model"
)

type staticRunner struct{}

func (staticRunner) Run(_ context.Context, id string) model.PipelineState {
	return model.NewPipelineState("run", id).WithReport("report", nil)
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func TestResolvePort_FlagSet(t *testing.T) {
	assert.Equal(t, 9090, resolvePort(9090, 8000))
}

func TestResolvePort_FlagZero(t *testing.T) {
	assert.Equal(t, 8000, resolvePort(0, 8000))
}

func TestStartServer_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	router := api.NewServer(api.Config{}, staticRunner{}, okPinger{}).Router()

	// Find a free port.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- startServer(ctx, router, port)
	}()

	// Wait for server to be ready.
	var ready bool
	for i := 0; i < 50; i++ {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err == nil {
			resp.Body.Close()
			ready = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, ready, "server did not become ready in time")

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/recommendation/C1", port))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body api.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "C1", body.CustomerID)
	assert.Nil(t, body.Error)

	// Trigger graceful shutdown.
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestStartServer_PortInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	err = startServer(context.Background(), http.NotFoundHandler(), port)
	assert.ErrorContains(t, err, "server listen")
}

func TestServeCmd_RunE_FailsOnValidation(t *testing.T) {
	c := testConfig(t)
	c.Store.DatabaseURL = ""
	setConfig(t, c)

	serveCmd.SetContext(context.Background())
	defer serveCmd.SetContext(nil) //nolint:staticcheck

	err := serveCmd.RunE(serveCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}
