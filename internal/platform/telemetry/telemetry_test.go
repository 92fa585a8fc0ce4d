package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

// collector records the paths OTLP exports arrive on.
type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	c.mu.Lock()
	c.paths = append(c.paths, r.URL.Path)
	c.mu.Unlock()
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(http.StatusOK)
}

func (c *collector) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func TestSetupExportsSpansAndMetrics(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col)
	defer srv.Close()
	ctx := context.Background()

	shutdown, err := Setup(ctx, "bookcourier-test", srv.URL)
	require.NoError(t, err)

	counter, err := otel.Meter("bookcourier/test").Int64Counter("bookcourier.test.count")
	require.NoError(t, err)
	counter.Add(ctx, 3)
	_, span := otel.Tracer("bookcourier/test").Start(ctx, "test.span")
	span.End()

	require.NoError(t, shutdown(ctx))
	assert.Contains(t, col.seen(), "/v1/metrics")
	assert.Contains(t, col.seen(), "/v1/traces")
}

func TestSetupWithoutEndpoint(t *testing.T) {
	ctx := context.Background()
	shutdown, err := Setup(ctx, "bookcourier-test", "")
	require.NoError(t, err)

	counter, err := otel.Meter("bookcourier/test").Int64Counter("bookcourier.test.count")
	require.NoError(t, err)
	counter.Add(ctx, 1)
	assert.NoError(t, shutdown(ctx))
}
