// Package gateway routes the public API to the catalog and orders services
// of the split deployment.
package gateway

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bookcourier/internal/apperr"
	"bookcourier/internal/httpx"
)

// NewRouter proxies catalog routes to catalogURL and order routes to
// ordersURL. The root banner and health check are served by the catalog.
func NewRouter(catalogURL, ordersURL string, log *slog.Logger) (http.Handler, error) {
	catalogProxy, err := proxy(catalogURL, log)
	if err != nil {
		return nil, err
	}
	ordersProxy, err := proxy(ordersURL, log)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Handle("/", catalogProxy)
	r.Handle("/healthz", catalogProxy)
	r.Handle("/books", catalogProxy)
	r.Handle("/books/*", catalogProxy)
	r.Handle("/librarian/books", catalogProxy)
	r.Handle("/librarian/books/*", catalogProxy)
	r.Handle("/librarian/{email}/books", catalogProxy)

	r.Handle("/orders", ordersProxy)
	r.Handle("/orders/*", ordersProxy)
	r.Handle("/user/*", ordersProxy)
	r.Handle("/librarian/orders/*", ordersProxy)
	r.Handle("/librarian/{email}/orders", ordersProxy)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, r, log, apperr.NotFound("route %s %s", r.Method, r.URL.Path))
	})
	return r, nil
}

func proxy(raw string, log *slog.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(raw)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q", raw)
	}
	p := httputil.NewSingleHostReverseProxy(target)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error("upstream unavailable", "upstream", target.Host, "path", r.URL.Path, "err", err)
		httpx.JSON(w, http.StatusBadGateway, map[string]string{"error": "upstream unavailable"})
	}
	return p, nil
}
