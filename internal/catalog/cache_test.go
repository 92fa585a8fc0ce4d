package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcourier/internal/apperr"
)

// interleavedStore runs onGet once, after the wrapped lookup has read its row
// and before it returns it.
type interleavedStore struct {
	Store
	once  sync.Once
	onGet func()
}

func (s *interleavedStore) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	book, err := s.Store.Get(ctx, id)
	if s.onGet != nil {
		s.once.Do(s.onGet)
	}
	return book, err
}

func newCache(t *testing.T, inner Store) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	return NewCachedStore(inner, rdb, time.Minute, discardLogger()), mr
}

func TestCacheReadThrough(t *testing.T) {
	inner := NewMemoryStore()
	cached, mr := newCache(t, inner)
	ctx := context.Background()
	b := seedBook(t, inner, "lib@example.com", StatusPublished, "", base(0))

	got, err := cached.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.BookName, got.BookName)
	assert.True(t, mr.Exists(cacheKey(b.ID)))

	name := "Purple Hibiscus"
	_, err = inner.Update(ctx, b.ID, BookPatch{AddedBy: "lib@example.com", BookName: &name}, base(time.Hour))
	require.NoError(t, err)

	got, err = cached.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.BookName, got.BookName, "second read is served from redis")
	assert.True(t, b.Price.Equal(got.Price))
}

func TestCacheUpdateInvalidates(t *testing.T) {
	inner := NewMemoryStore()
	cached, mr := newCache(t, inner)
	ctx := context.Background()
	b := seedBook(t, inner, "lib@example.com", StatusPublished, "", base(0))

	_, err := cached.Get(ctx, b.ID)
	require.NoError(t, err)

	status := StatusUnpublished
	_, err = cached.Update(ctx, b.ID, BookPatch{AddedBy: "lib@example.com", Status: &status}, base(time.Hour))
	require.NoError(t, err)
	assert.False(t, mr.Exists(cacheKey(b.ID)))

	got, err := cached.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUnpublished, got.Status)
}

func TestCacheDeleteInvalidates(t *testing.T) {
	inner := NewMemoryStore()
	cached, _ := newCache(t, inner)
	ctx := context.Background()
	b := seedBook(t, inner, "lib@example.com", StatusPublished, "", base(0))

	_, err := cached.Get(ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, cached.Delete(ctx, b.ID))

	_, err = cached.Get(ctx, b.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCacheMissesAreNotCached(t *testing.T) {
	cached, mr := newCache(t, NewMemoryStore())
	id := uuid.New()

	_, err := cached.Get(context.Background(), id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.False(t, mr.Exists(cacheKey(id)))
}

func TestCacheFallsThroughWhenRedisIsDown(t *testing.T) {
	inner := NewMemoryStore()
	cached, mr := newCache(t, inner)
	ctx := context.Background()
	b := seedBook(t, inner, "lib@example.com", StatusPublished, "", base(0))
	mr.Close()

	got, err := cached.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	name := "Americanah"
	updated, err := cached.Update(ctx, b.ID, BookPatch{AddedBy: "lib@example.com", BookName: &name}, base(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, name, updated.BookName)

	assert.Error(t, cached.Ping(ctx))
}

func TestCacheFillDoesNotResurrectOverlappingWrite(t *testing.T) {
	inner := &interleavedStore{Store: NewMemoryStore()}
	cached, mr := newCache(t, inner)
	svc := NewService(cached, nil, discardLogger())
	ctx := context.Background()

	book, err := svc.CreateBook(ctx, validBook("lib@example.com"))
	require.NoError(t, err)

	inner.onGet = func() {
		status := StatusUnpublished
		_, err := svc.UpdateBook(ctx, book.ID, BookPatch{AddedBy: "lib@example.com", Status: &status})
		require.NoError(t, err)
	}

	// This read saw the row before the unpublish and must not cache it.
	got, err := cached.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, got.Status)
	assert.False(t, mr.Exists(cacheKey(book.ID)))

	_, err = svc.PublishedBook(ctx, book.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err = cached.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUnpublished, got.Status)
}
