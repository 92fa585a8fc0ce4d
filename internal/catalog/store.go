package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bookcourier/internal/visibility"
)

// Store persists books. Implementations return apperr.ErrNotFound for missing
// records and wrap driver failures with apperr.Store.
type Store interface {
	Insert(ctx context.Context, book *Book) error
	Get(ctx context.Context, id uuid.UUID) (*Book, error)
	GetByCustomID(ctx context.Context, customID string) (*Book, error)
	List(ctx context.Context, scope visibility.BookScope) ([]*Book, error)
	// Update applies patch to the book matching both id and patch.AddedBy.
	Update(ctx context.Context, id uuid.UUID, patch BookPatch, now time.Time) (*Book, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Ping(ctx context.Context) error
}
