package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookcourier/internal/apperr"
	"bookcourier/internal/visibility"
)

const orderColumns = `id, user_email, book_id, book_title, amount, status, payment_status, created_at, updated_at`

var returningOrder = `o.` + strings.ReplaceAll(orderColumns, ", ", ", o.")

// changedRow is an order as returned by a conditional update together with
// the value the updated column held before the write.
type changedRow struct {
	Order
	Previous string `db:"previous"`
}

type postgresStore struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewPostgresStore returns a Store over the orders table.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db, tracer: otel.Tracer("bookcourier/orders/postgres")}
}

func (s *postgresStore) Insert(ctx context.Context, order *Order) error {
	ctx, span := s.tracer.Start(ctx, "orders.insert", trace.WithAttributes(attribute.String("order.id", order.ID.String())))
	defer span.End()

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (:id, :user_email, :book_id, :book_title, :amount, :status, :payment_status, :created_at, :updated_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, order); err != nil {
		return apperr.Store("insert order", err)
	}
	return nil
}

func (s *postgresStore) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.get", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	order := &Order{}
	err := s.db.GetContext(ctx, order, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("order %s", id)
	}
	if err != nil {
		return nil, apperr.Store("get order", err)
	}
	return order, nil
}

// scopeClause renders scope as SQL conditions on the given table alias,
// appending its arguments to args.
func scopeClause(alias string, scope visibility.OrderScope, args []interface{}) ([]string, []interface{}) {
	var where []string
	if scope.ByBook {
		ids := lo.Map(scope.BookIDs, func(id uuid.UUID, _ int) string { return id.String() })
		args = append(args, pq.Array(ids))
		where = append(where, fmt.Sprintf("%sbook_id = ANY($%d::uuid[])", alias, len(args)))
	}
	if scope.UserEmail != "" {
		args = append(args, scope.UserEmail)
		where = append(where, fmt.Sprintf("%suser_email = $%d", alias, len(args)))
	}
	return where, args
}

func (s *postgresStore) List(ctx context.Context, scope visibility.OrderScope, filter Filter) ([]*Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.list", trace.WithAttributes(
		attribute.Bool("scope.by_book", scope.ByBook),
		attribute.Int("scope.book_ids", len(scope.BookIDs)),
	))
	defer span.End()

	orders := []*Order{}
	if scope.Empty() {
		return orders, nil
	}

	where, args := scopeClause("", scope, nil)
	if filter.PaymentStatus != "" {
		args = append(args, string(filter.PaymentStatus))
		where = append(where, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`

	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, apperr.Store("list orders", err)
	}
	return orders, nil
}

// Transition locks the row, checks the guard and writes in one statement.
// updated_at only moves when the status actually changes.
func (s *postgresStore) Transition(ctx context.Context, id uuid.UUID, t Transition, scope *visibility.OrderScope, now time.Time) (*Order, Status, error) {
	ctx, span := s.tracer.Start(ctx, "orders.transition", trace.WithAttributes(
		attribute.String("order.id", id.String()),
		attribute.String("order.to", string(t.To)),
	))
	defer span.End()

	if scope != nil && scope.Empty() {
		return nil, "", apperr.NotFound("order %s", id)
	}

	from := lo.Map(t.From, func(st Status, _ int) string { return string(st) })
	args := []interface{}{id, string(t.To), now, pq.Array(from)}
	where := []string{"o.id = c.id", "c.status = ANY($4)"}
	if scope != nil {
		var extra []string
		extra, args = scopeClause("o.", *scope, args)
		where = append(where, extra...)
	}

	query := `
		WITH c AS (SELECT id, status FROM orders WHERE id = $1 FOR UPDATE)
		UPDATE orders o
		SET status = $2,
		    updated_at = CASE WHEN c.status = $2 THEN o.updated_at ELSE $3 END
		FROM c
		WHERE ` + strings.Join(where, " AND ") + `
		RETURNING ` + returningOrder + `, c.status AS previous`

	row := &changedRow{}
	err := s.db.GetContext(ctx, row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := s.Get(ctx, id)
		return nil, "", classifyMiss(current, getErr, id, t, scope)
	}
	if err != nil {
		return nil, "", apperr.Store("transition order", err)
	}
	return &row.Order, Status(row.Previous), nil
}

func (s *postgresStore) SetPaymentStatus(ctx context.Context, id uuid.UUID, ps PaymentStatus, now time.Time) (*Order, bool, error) {
	ctx, span := s.tracer.Start(ctx, "orders.set_payment_status", trace.WithAttributes(
		attribute.String("order.id", id.String()),
		attribute.String("order.payment_status", string(ps)),
	))
	defer span.End()

	query := `
		WITH c AS (SELECT id, payment_status FROM orders WHERE id = $1 FOR UPDATE)
		UPDATE orders o
		SET payment_status = $2,
		    updated_at = CASE WHEN c.payment_status = $2 THEN o.updated_at ELSE $3 END
		FROM c
		WHERE o.id = c.id
		RETURNING ` + returningOrder + `, c.payment_status AS previous`

	row := &changedRow{}
	err := s.db.GetContext(ctx, row, query, id, string(ps), now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, apperr.NotFound("order %s", id)
	}
	if err != nil {
		return nil, false, apperr.Store("update order payment", err)
	}
	return &row.Order, row.Previous != string(ps), nil
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
