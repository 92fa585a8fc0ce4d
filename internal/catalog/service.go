// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the catalog service.
type Service interface {
	CreateBook(ctx context.Context, in NewBook) (*Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, patch BookPatch) (*Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error

	// Buyer reads: published books only.
	PublishedBooks(ctx context.Context) ([]*Book, error)
	PublishedBook(ctx context.Context, id uuid.UUID) (*Book, error)
	PublishedBookByCustomID(ctx context.Context, customID string) (*Book, error)

	// LibrarianBooks returns every book the librarian added, in any status.
	LibrarianBooks(ctx context.Context, librarian string) ([]*Book, error)
}
