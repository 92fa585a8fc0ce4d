package orders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bookcourier/internal/apperr"
	"bookcourier/internal/visibility"
)

// Store persists orders. Implementations return apperr.ErrNotFound for
// missing records and wrap driver failures with apperr.Store.
type Store interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	// List returns the orders in scope, newest first. An empty scope yields
	// no orders.
	List(ctx context.Context, scope visibility.OrderScope, filter Filter) ([]*Order, error)
	// Transition applies t in a single conditional write. When scope is not
	// nil the order must also be in scope, otherwise it is reported as not
	// found. A transition whose guard fails reports apperr.ErrConflict with
	// t.Reason. The returned status is the one the write replaced; it equals
	// t.To when nothing changed.
	Transition(ctx context.Context, id uuid.UUID, t Transition, scope *visibility.OrderScope, now time.Time) (*Order, Status, error)
	// SetPaymentStatus overwrites the payment flag. It never touches status.
	SetPaymentStatus(ctx context.Context, id uuid.UUID, ps PaymentStatus, now time.Time) (*Order, bool, error)
	Ping(ctx context.Context) error
}

// classifyMiss turns a conditional write that matched nothing into NotFound
// or Conflict by looking at the order as it is now.
func classifyMiss(current *Order, err error, id uuid.UUID, t Transition, scope *visibility.OrderScope) error {
	if err != nil {
		return err
	}
	if scope != nil && !scope.Allows(current.UserEmail, current.BookID) {
		return apperr.NotFound("order %s", id)
	}
	return apperr.Conflict("%s (order %s is %s)", t.Reason, id, current.Status)
}
