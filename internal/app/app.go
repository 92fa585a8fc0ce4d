// Package app assembles stores, services and the HTTP router for each
// deployment shape.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"bookcourier/internal/catalog"
	"bookcourier/internal/clients"
	"bookcourier/internal/config"
	"bookcourier/internal/orders"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Role selects which routes a process serves.
type Role int

const (
	// RoleAll serves catalog and orders from one process.
	RoleAll Role = iota
	// RoleCatalog serves only the catalog routes.
	RoleCatalog
	// RoleOrders serves only the order routes and reads books over HTTP.
	RoleOrders
)

type App struct {
	Catalog catalog.Service
	Orders  orders.Service

	backend *backend
	handler http.Handler
	log     *slog.Logger
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger, role Role) (*App, error) {
	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := &App{backend: b, log: log}

	var (
		modules []Module
		pings   []func(context.Context) error
	)
	if role == RoleAll || role == RoleCatalog {
		a.Catalog = catalog.NewService(b.books, b.events, log)
		modules = append(modules, catalog.NewHandler(a.Catalog, log))
		pings = append(pings, b.books.Ping)
	}
	if role == RoleAll || role == RoleOrders {
		var books orders.BookDirectory
		if a.Catalog != nil {
			books = clients.NewLocalCatalog(a.Catalog)
		} else {
			books = clients.NewCatalogClient(cfg.CatalogServiceURL)
		}
		a.Orders = orders.NewService(b.orders, books, b.events, orders.Options{
			AllowLibrarianCancel: cfg.AllowLibrarianCancel,
			OrdersPerMinute:      cfg.OrdersPerMinute,
		}, log)
		modules = append(modules, orders.NewHandler(a.Orders, log))
		pings = append(pings, b.orders.Ping)
	}

	a.handler = NewRouter(cfg, log, func(ctx context.Context) error {
		var errs []error
		for _, ping := range pings {
			errs = append(errs, ping(ctx))
		}
		return errors.Join(errs...)
	}, modules...)
	return a, nil
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// Close disconnects from the stores.
func (a *App) Close(ctx context.Context) error {
	return a.backend.close(ctx)
}
