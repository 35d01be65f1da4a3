package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mcp-calendar/internal/instrumentation"
)

func TestNewMetricsServer_RequiresPrometheusProvider(t *testing.T) {
	_, err := NewMetricsServer(MetricsServerConfig{Addr: "127.0.0.1:0"})
	assert.Error(t, err)

	disabled, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{})
	require.NoError(t, err)
	_, err = NewMetricsServer(MetricsServerConfig{Addr: "127.0.0.1:0", InstrumentationProvider: disabled})
	assert.Error(t, err)
}

func TestMetricsServer_ServesMetrics(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
		ServiceName:       "test",
		Enabled:           true,
		MetricsExporter:   instrumentation.ExporterPrometheus,
		TracingExporter:   instrumentation.ExporterNone,
		TraceSamplingRate: 1,
	})
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(ctx) }()

	provider.Metrics().RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)

	srv, err := NewMetricsServer(MetricsServerConfig{Addr: "127.0.0.1:0", InstrumentationProvider: provider})
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	defer func() { _ = srv.Shutdown(ctx) }()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "oauth_token_refresh_total")

	health, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
