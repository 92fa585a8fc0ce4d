package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"bookcourier/internal/catalog"
	"bookcourier/internal/config"
	"bookcourier/internal/orders"
	"bookcourier/internal/platform/mongodb"
	"bookcourier/internal/platform/postgres"
	"bookcourier/pkg/eventstore"
)

// backend is the set of stores for one STORE_DRIVER, plus the clients they
// were built from.
type backend struct {
	books   catalog.Store
	orders  orders.Store
	events  eventstore.Store
	closers []func(context.Context) error
}

func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (*backend, error) {
	b := &backend{}
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			b.close(ctx)
			return nil, err
		}
		b.books = catalog.NewPostgresStore(db)
		b.orders = orders.NewPostgresStore(db)
		b.events = eventstore.NewEventStore(db.DB)

	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, client.Disconnect)
		db := client.Database(cfg.MongoDatabase)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			b.close(ctx)
			return nil, err
		}
		b.books = catalog.NewMongoStore(db)
		b.orders = orders.NewMongoStore(db)
		b.events = eventstore.NewMongoStore(db)

	case config.DriverMemory:
		b.books = catalog.NewMemoryStore()
		b.orders = orders.NewMemoryStore()
		b.events = eventstore.NewMemoryStore()

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, book cache will fall through to the store", "addr", cfg.RedisAddr, "err", err)
		}
		b.closers = append(b.closers, func(context.Context) error { return rdb.Close() })
		b.books = catalog.NewCachedStore(b.books, rdb, cfg.CacheTTL, log)
	}
	return b, nil
}

// close releases clients in reverse order of opening.
func (b *backend) close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i](ctx))
	}
	b.closers = nil
	return errors.Join(errs...)
}
