package clients

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"bookcourier/internal/catalog"
	"bookcourier/internal/orders"
)

// LocalCatalog adapts an in-process catalog.Service to orders.BookDirectory.
type LocalCatalog struct {
	service catalog.Service
}

func NewLocalCatalog(service catalog.Service) *LocalCatalog {
	return &LocalCatalog{service: service}
}

var _ orders.BookDirectory = (*LocalCatalog)(nil)

func (l *LocalCatalog) PublishedBook(ctx context.Context, id uuid.UUID) (orders.BookRef, error) {
	book, err := l.service.PublishedBook(ctx, id)
	if err != nil {
		return orders.BookRef{}, err
	}
	return orders.BookRef{ID: book.ID, Title: book.BookName, AddedBy: book.AddedBy}, nil
}

func (l *LocalCatalog) OwnedBookIDs(ctx context.Context, librarian string) ([]uuid.UUID, error) {
	books, err := l.service.LibrarianBooks(ctx, librarian)
	if err != nil {
		return nil, err
	}
	return lo.Map(books, func(b *catalog.Book, _ int) uuid.UUID { return b.ID }), nil
}
