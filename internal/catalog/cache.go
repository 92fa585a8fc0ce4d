package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const cacheKeyPrefix = "bookcourier:book:"

// cachedStore is a read-through cache of single-book lookups. Lists are never
// cached. A cache outage degrades to direct store reads.
//
// Every book has a generation counter next to its entry. Updates and deletes
// bump it after the write, and a fill only lands if the counter still holds
// the value read before the store lookup, so a read that overlaps a write
// never puts the old row back.
type cachedStore struct {
	Store
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// NewCachedStore wraps store with a Redis cache.
func NewCachedStore(store Store, rdb *redis.Client, ttl time.Duration, log *slog.Logger) Store {
	return &cachedStore{Store: store, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(id uuid.UUID) string      { return cacheKeyPrefix + id.String() }
func generationKey(id uuid.UUID) string { return cacheKeyPrefix + id.String() + ":gen" }

func (c *cachedStore) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var book Book
		if err := json.Unmarshal(raw, &book); err == nil {
			return &book, nil
		}
		c.log.Warn("discarding undecodable cache entry", "book_id", id)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("book cache read failed", "book_id", id, "err", err)
		return c.Store.Get(ctx, id)
	}

	gen, err := c.generation(ctx, c.rdb, id)
	if err != nil {
		c.log.Warn("book cache read failed", "book_id", id, "err", err)
		return c.Store.Get(ctx, id)
	}
	book, err := c.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, book, gen)
	return book, nil
}

// getter is the read shared by *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *cachedStore) generation(ctx context.Context, cmd getter, id uuid.UUID) (int64, error) {
	gen, err := cmd.Get(ctx, generationKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// fill caches book unless its generation moved past gen.
func (c *cachedStore) fill(ctx context.Context, book *Book, gen int64) {
	raw, err := json.Marshal(book)
	if err != nil {
		return
	}
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx, book.ID)
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(book.ID), raw, c.ttl)
			return nil
		})
		return err
	}, generationKey(book.ID))
	switch {
	case errors.Is(err, redis.TxFailedErr):
		c.log.Debug("skipped cache fill racing a write", "book_id", book.ID)
	case err != nil:
		c.log.Warn("book cache write failed", "book_id", book.ID, "err", err)
	}
}

func (c *cachedStore) Update(ctx context.Context, id uuid.UUID, patch BookPatch, now time.Time) (*Book, error) {
	book, err := c.Store.Update(ctx, id, patch, now)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, id)
	return book, nil
}

func (c *cachedStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.Store.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *cachedStore) Ping(ctx context.Context) error {
	if err := c.Store.Ping(ctx); err != nil {
		return err
	}
	return c.rdb.Ping(ctx).Err()
}

// invalidate bumps the generation before dropping the entry, so fills that
// started earlier are refused.
func (c *cachedStore) invalidate(ctx context.Context, id uuid.UUID) {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(id))
		pipe.Del(ctx, cacheKey(id))
		return nil
	})
	if err != nil {
		c.log.Warn("book cache invalidation failed", "book_id", id, "err", err)
	}
}
