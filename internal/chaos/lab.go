package chaos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookcourier/internal/apperr"
	"bookcourier/internal/catalog"
	"bookcourier/internal/clients"
	"bookcourier/internal/orders"
	"bookcourier/internal/visibility"
	"bookcourier/pkg/eventstore"
)

var errInjected = errors.New("injected store failure")

// faultyStore is an orders.Store whose writes can be switched off.
type faultyStore struct {
	orders.Store
	failWrites atomic.Bool
}

func (f *faultyStore) fault(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return apperr.Store(op, err)
	}
	if f.failWrites.Load() {
		return apperr.Store(op, errInjected)
	}
	return nil
}

func (f *faultyStore) Insert(ctx context.Context, order *orders.Order) error {
	if err := f.fault(ctx, "insert order"); err != nil {
		return err
	}
	return f.Store.Insert(ctx, order)
}

func (f *faultyStore) Transition(ctx context.Context, id uuid.UUID, t orders.Transition, scope *visibility.OrderScope, now time.Time) (*orders.Order, orders.Status, error) {
	if err := f.fault(ctx, "transition order"); err != nil {
		return nil, "", err
	}
	return f.Store.Transition(ctx, id, t, scope, now)
}

func (f *faultyStore) SetPaymentStatus(ctx context.Context, id uuid.UUID, ps orders.PaymentStatus, now time.Time) (*orders.Order, bool, error) {
	if err := f.fault(ctx, "update order payment"); err != nil {
		return nil, false, err
	}
	return f.Store.SetPaymentStatus(ctx, id, ps, now)
}

// Lab is an in-process BookCourier with a fault-injectable order store.
type Lab struct {
	Catalog catalog.Service
	Orders  orders.Service

	store  *faultyStore
	events *eventstore.MemoryStore
	book   uuid.UUID
	buyers []string
}

const labLibrarian = "chaos-librarian@example.com"

func NewLab(ctx context.Context, log *slog.Logger) (*Lab, error) {
	events := eventstore.NewMemoryStore()
	cat := catalog.NewService(catalog.NewMemoryStore(), events, log)

	price := decimal.NewFromInt(25)
	book, err := cat.CreateBook(ctx, catalog.NewBook{
		BookName:   "Chaos Monkeys",
		BookAuthor: "Antonio García Martínez",
		BookImage:  "https://img.example.com/chaos.jpg",
		Price:      &price,
		AddedBy:    labLibrarian,
	})
	if err != nil {
		return nil, fmt.Errorf("seed lab catalog: %w", err)
	}

	store := &faultyStore{Store: orders.NewMemoryStore()}
	return &Lab{
		Catalog: cat,
		Orders:  orders.NewService(store, clients.NewLocalCatalog(cat), events, orders.Options{}, log),
		store:   store,
		events:  events,
		book:    book.ID,
		buyers:  []string{"buyer-1@example.com", "buyer-2@example.com", "buyer-3@example.com"},
	}, nil
}

func (l *Lab) buyer(i int) string {
	return l.buyers[i%len(l.buyers)]
}

func (l *Lab) place(ctx context.Context, buyer string) (*orders.Order, error) {
	amount := decimal.NewFromInt(25)
	return l.Orders.PlaceOrder(ctx, orders.PlaceOrder{
		UserEmail: buyer,
		BookID:    l.book.String(),
		Amount:    &amount,
	})
}

// IllegalOrders counts orders whose state the lifecycle cannot produce: an
// unknown status or payment value, or a history with both a cancellation and
// a fulfillment change.
func (l *Lab) IllegalOrders(ctx context.Context) (float64, error) {
	illegal := 0
	for _, buyer := range l.buyers {
		list, err := l.Orders.UserOrders(ctx, buyer)
		if err != nil {
			return 0, err
		}
		for _, o := range list {
			switch o.Status {
			case orders.StatusPending, orders.StatusShipped, orders.StatusDelivered, orders.StatusCancelled:
			default:
				illegal++
				continue
			}
			if o.PaymentStatus != orders.PaymentPaid && o.PaymentStatus != orders.PaymentUnpaid {
				illegal++
				continue
			}
			history, err := l.events.LoadEvents(ctx, o.ID, 0, 0)
			if err != nil {
				return 0, err
			}
			var cancelled, moved bool
			for _, ev := range history {
				cancelled = cancelled || ev.EventType == "OrderCancelled"
				moved = moved || ev.EventType == "OrderStatusChanged"
			}
			if cancelled && moved {
				illegal++
			}
		}
	}
	return float64(illegal), nil
}

// WriteSuccessRate places sample orders and returns the percentage that
// succeeded.
func (l *Lab) WriteSuccessRate(ctx context.Context, samples int) (float64, error) {
	ok := 0
	for i := 0; i < samples; i++ {
		if _, err := l.place(ctx, l.buyer(i)); err == nil {
			ok++
		} else if !apperr.Classified(err) {
			return 0, err
		}
	}
	return float64(ok) / float64(samples) * 100, nil
}
