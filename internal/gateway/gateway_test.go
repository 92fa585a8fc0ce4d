package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstream(t *testing.T, name string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, name+" "+r.Method+" "+r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutesToUpstreams(t *testing.T) {
	catalog := upstream(t, "catalog")
	orders := upstream(t, "orders")
	h, err := NewRouter(catalog.URL, orders.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	cases := []struct {
		method, path, want string
	}{
		{http.MethodGet, "/", "catalog"},
		{http.MethodGet, "/books", "catalog"},
		{http.MethodGet, "/books/custom/abc", "catalog"},
		{http.MethodPost, "/librarian/books", "catalog"},
		{http.MethodPatch, "/librarian/books/123", "catalog"},
		{http.MethodGet, "/librarian/lib@example.com/books", "catalog"},
		{http.MethodPost, "/orders", "orders"},
		{http.MethodPatch, "/orders/cancel/123", "orders"},
		{http.MethodGet, "/user/payments/buyer@example.com", "orders"},
		{http.MethodGet, "/librarian/lib@example.com/orders", "orders"},
		{http.MethodPatch, "/librarian/orders/123/status", "orders"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.want+" "+tc.method+" "+tc.path, rec.Body.String())
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpstreamDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	h, err := NewRouter(dead.URL, dead.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestInvalidUpstream(t *testing.T) {
	_, err := NewRouter("not a url", "http://localhost:1", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
