package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bookcourier/internal/apperr"
	"bookcourier/internal/visibility"
)

type memoryStore struct {
	mu    sync.RWMutex
	books map[uuid.UUID]Book
}

// NewMemoryStore returns a process-local Store.
func NewMemoryStore() Store {
	return &memoryStore{books: make(map[uuid.UUID]Book)}
}

func (m *memoryStore) Insert(_ context.Context, book *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.books[book.ID]; exists {
		return apperr.Conflict("book %s already exists", book.ID)
	}
	if book.CustomID != "" {
		for _, b := range m.books {
			if b.CustomID == book.CustomID {
				return apperr.Conflict("custom id %q is already in use", book.CustomID)
			}
		}
	}
	m.books[book.ID] = *book
	return nil
}

func (m *memoryStore) Get(_ context.Context, id uuid.UUID) (*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.books[id]
	if !ok {
		return nil, apperr.NotFound("book %s", id)
	}
	return &b, nil
}

func (m *memoryStore) GetByCustomID(_ context.Context, customID string) (*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, b := range m.books {
		if customID != "" && b.CustomID == customID {
			return &b, nil
		}
	}
	return nil, apperr.NotFound("book with custom id %q", customID)
}

func (m *memoryStore) List(_ context.Context, scope visibility.BookScope) ([]*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*Book{}
	for _, b := range m.books {
		if scope.Allows(string(b.Status), b.AddedBy) {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) Update(_ context.Context, id uuid.UUID, patch BookPatch, now time.Time) (*Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.books[id]
	if !ok || b.AddedBy != patch.AddedBy {
		return nil, apperr.NotFound("book %s for librarian %s", id, patch.AddedBy)
	}
	if patch.CustomID != nil && *patch.CustomID != "" {
		for otherID, other := range m.books {
			if otherID != id && other.CustomID == *patch.CustomID {
				return nil, apperr.Conflict("custom id %q is already in use", *patch.CustomID)
			}
		}
	}
	patch.Apply(&b, now)
	m.books[id] = b
	return &b, nil
}

func (m *memoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.books[id]; !ok {
		return apperr.NotFound("book %s", id)
	}
	delete(m.books, id)
	return nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }
