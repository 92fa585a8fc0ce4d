// internal/orders/implementation.go
package orders

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"bookcourier/internal/apperr"
	"bookcourier/internal/validation"
	"bookcourier/internal/visibility"
	"bookcourier/pkg/eventstore"
)

// service implements the Service interface.
type service struct {
	store       Store
	books       BookDirectory
	history     *history
	opts        Options
	limiter     *rate.Limiter
	validate    *validation.Validator
	log         *slog.Logger
	tracer      trace.Tracer
	transitions metric.Int64Counter
	now         func() time.Time
}

// NewService creates a new orders service instance. eventStore may be nil,
// in which case order history is not kept.
func NewService(store Store, books BookDirectory, es eventstore.Store, opts Options, log *slog.Logger) Service {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.OrdersPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.OrdersPerMinute)/60), opts.OrdersPerMinute)
	}
	transitions, err := otel.Meter("bookcourier/orders").Int64Counter("bookcourier.orders.transitions",
		metric.WithDescription("Order status and payment changes"))
	if err != nil {
		log.Warn("failed to create transitions counter", "err", err)
	}
	return &service{
		store:       store,
		books:       books,
		history:     newHistory(es, log),
		opts:        opts,
		limiter:     limiter,
		validate:    validation.New(),
		log:         log,
		tracer:      otel.Tracer("bookcourier/orders"),
		transitions: transitions,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder creates a pending, unpaid order against a published book.
func (s *service) PlaceOrder(ctx context.Context, in PlaceOrder) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.place_order")
	defer span.End()

	if !s.limiter.Allow() {
		return nil, apperr.ErrRateLimited
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if err := validation.Money("amount", *in.Amount); err != nil {
		return nil, err
	}
	bookID, err := uuid.Parse(in.BookID)
	if err != nil {
		return nil, apperr.Validation("invalid book id %q", in.BookID)
	}

	book, err := s.books.PublishedBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	order := NewOrder(in.UserEmail, book, strings.TrimSpace(in.BookTitle), *in.Amount, s.now())
	if err := s.store.Insert(ctx, order); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID.String()))

	s.history.record(ctx, order.ID, "OrderPlaced", OrderPlacedEvent{
		ID:        order.ID,
		UserEmail: order.UserEmail,
		BookID:    order.BookID,
		Amount:    order.Amount,
	})
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.store.Get(ctx, id)
}

func (s *service) UserOrders(ctx context.Context, userEmail string) ([]*Order, error) {
	if strings.TrimSpace(userEmail) == "" {
		return nil, apperr.Validation("user email is required")
	}
	return s.store.List(ctx, visibility.UserOrders(userEmail), Filter{})
}

func (s *service) UserPayments(ctx context.Context, userEmail string) ([]*Order, error) {
	if strings.TrimSpace(userEmail) == "" {
		return nil, apperr.Validation("user email is required")
	}
	return s.store.List(ctx, visibility.UserOrders(userEmail), Filter{PaymentStatus: PaymentPaid})
}

// LibrarianOrders reads the librarian's book ids, then the orders for them.
// The two reads are not atomic.
func (s *service) LibrarianOrders(ctx context.Context, librarian string) ([]*Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.librarian_orders")
	defer span.End()

	scope, err := s.librarianScope(ctx, librarian)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("books.owned", len(scope.BookIDs)))
	return s.store.List(ctx, *scope, Filter{})
}

func (s *service) librarianScope(ctx context.Context, librarian string) (*visibility.OrderScope, error) {
	if strings.TrimSpace(librarian) == "" {
		return nil, apperr.Validation("librarian email is required")
	}
	owned, err := s.books.OwnedBookIDs(ctx, librarian)
	if err != nil {
		return nil, err
	}
	scope := visibility.LibrarianOrders(owned)
	return &scope, nil
}

func (s *service) CancelByUser(ctx context.Context, id uuid.UUID, userEmail string) (Result, error) {
	var scope *visibility.OrderScope
	if userEmail = strings.TrimSpace(userEmail); userEmail != "" {
		sc := visibility.UserOrders(userEmail)
		scope = &sc
	}
	by := userEmail
	if by == "" {
		by = "user"
	}
	return s.cancel(ctx, id, scope, by)
}

func (s *service) CancelByLibrarian(ctx context.Context, id uuid.UUID, librarian string) (Result, error) {
	if !s.opts.AllowLibrarianCancel {
		return Result{}, apperr.Forbidden("librarians cannot cancel orders")
	}
	scope, err := s.librarianScope(ctx, librarian)
	if err != nil {
		return Result{}, err
	}
	return s.cancel(ctx, id, scope, librarian)
}

func (s *service) cancel(ctx context.Context, id uuid.UUID, scope *visibility.OrderScope, by string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "orders.cancel", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	order, previous, err := s.store.Transition(ctx, id, Cancellation(), scope, s.now())
	if err != nil {
		return Result{}, err
	}
	modified := previous != order.Status
	s.count(ctx, "status", string(StatusCancelled), modified)
	s.history.record(ctx, id, "OrderCancelled", OrderCancelledEvent{ID: id, By: by})
	return Result{Order: order, Modified: modified}, nil
}

func (s *service) UpdateFulfillment(ctx context.Context, id uuid.UUID, target, librarian string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "orders.update_fulfillment", trace.WithAttributes(
		attribute.String("order.id", id.String()),
		attribute.String("order.target", target),
	))
	defer span.End()

	to, err := ParseFulfillmentTarget(target)
	if err != nil {
		return Result{}, err
	}
	var scope *visibility.OrderScope
	if strings.TrimSpace(librarian) != "" {
		if scope, err = s.librarianScope(ctx, librarian); err != nil {
			return Result{}, err
		}
	}

	order, previous, err := s.store.Transition(ctx, id, Fulfillment(to), scope, s.now())
	if err != nil {
		return Result{}, err
	}
	modified := previous != order.Status
	s.count(ctx, "status", string(to), modified)
	if modified {
		s.history.record(ctx, id, "OrderStatusChanged", OrderStatusChangedEvent{ID: id, From: previous, To: to})
	}
	return Result{Order: order, Modified: modified}, nil
}

func (s *service) UpdatePayment(ctx context.Context, id uuid.UUID, requested string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "orders.update_payment", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	ps := PaymentStatusFor(requested)
	order, modified, err := s.store.SetPaymentStatus(ctx, id, ps, s.now())
	if err != nil {
		return Result{}, err
	}
	s.count(ctx, "payment", string(ps), modified)
	if modified {
		s.history.record(ctx, id, "OrderPaymentChanged", OrderPaymentChangedEvent{ID: id, PaymentStatus: ps})
	}
	return Result{Order: order, Modified: modified}, nil
}

func (s *service) History(ctx context.Context, id uuid.UUID) ([]eventstore.Event, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.history.load(ctx, id)
}

func (s *service) count(ctx context.Context, axis, value string, modified bool) {
	if s.transitions == nil {
		return
	}
	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("axis", axis),
		attribute.String("to", value),
		attribute.Bool("modified", modified),
	))
}
