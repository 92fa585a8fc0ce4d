// internal/orders/service.go
package orders

import (
	"context"

	"github.com/google/uuid"

	"bookcourier/pkg/eventstore"
)

// BookDirectory resolves the catalog books orders refer to. It is backed by
// the catalog service in process, or by its HTTP API when split.
type BookDirectory interface {
	// PublishedBook returns a book visible to buyers, or apperr.ErrNotFound.
	PublishedBook(ctx context.Context, id uuid.UUID) (BookRef, error)
	// OwnedBookIDs returns the ids of every book the librarian added.
	OwnedBookIDs(ctx context.Context, librarian string) ([]uuid.UUID, error)
}

// Service defines the interface for the orders service.
type Service interface {
	PlaceOrder(ctx context.Context, in PlaceOrder) (*Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)

	UserOrders(ctx context.Context, userEmail string) ([]*Order, error)
	// UserPayments returns the user's orders whose payment status is paid.
	UserPayments(ctx context.Context, userEmail string) ([]*Order, error)
	LibrarianOrders(ctx context.Context, librarian string) ([]*Order, error)

	// CancelByUser cancels a pending order. A non-empty userEmail must match
	// the order's purchaser.
	CancelByUser(ctx context.Context, id uuid.UUID, userEmail string) (Result, error)
	CancelByLibrarian(ctx context.Context, id uuid.UUID, librarian string) (Result, error)
	// UpdateFulfillment moves an order along the pipeline. A non-empty
	// librarian restricts it to orders for that librarian's books.
	UpdateFulfillment(ctx context.Context, id uuid.UUID, target, librarian string) (Result, error)
	UpdatePayment(ctx context.Context, id uuid.UUID, requested string) (Result, error)

	History(ctx context.Context, id uuid.UUID) ([]eventstore.Event, error)
}

// Options tunes policy and throttling.
type Options struct {
	AllowLibrarianCancel bool
	// OrdersPerMinute caps order creation across the process. Zero disables
	// the limit.
	OrdersPerMinute int
}
