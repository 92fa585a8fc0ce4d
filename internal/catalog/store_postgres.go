package catalog

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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookcourier/internal/apperr"
	"bookcourier/internal/visibility"
)

const bookColumns = `id, custom_id, book_name, book_author, book_image, price, category, description, added_by, status, created_at, updated_at`

type postgresStore struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewPostgresStore returns a Store over the books table.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db, tracer: otel.Tracer("bookcourier/catalog/postgres")}
}

func (s *postgresStore) Insert(ctx context.Context, book *Book) error {
	ctx, span := s.tracer.Start(ctx, "books.insert", trace.WithAttributes(attribute.String("book.id", book.ID.String())))
	defer span.End()

	query := `
		INSERT INTO books (` + bookColumns + `)
		VALUES (:id, :custom_id, :book_name, :book_author, :book_image, :price, :category, :description, :added_by, :status, :created_at, :updated_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, book); err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("custom id %q is already in use", book.CustomID)
		}
		return apperr.Store("insert book", err)
	}
	return nil
}

func (s *postgresStore) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "books.get", trace.WithAttributes(attribute.String("book.id", id.String())))
	defer span.End()

	book := &Book{}
	err := s.db.GetContext(ctx, book, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("book %s", id)
	}
	if err != nil {
		return nil, apperr.Store("get book", err)
	}
	return book, nil
}

func (s *postgresStore) GetByCustomID(ctx context.Context, customID string) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "books.get_by_custom_id")
	defer span.End()

	book := &Book{}
	err := s.db.GetContext(ctx, book, `SELECT `+bookColumns+` FROM books WHERE custom_id = $1 AND custom_id <> ''`, customID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("book with custom id %q", customID)
	}
	if err != nil {
		return nil, apperr.Store("get book by custom id", err)
	}
	return book, nil
}

func (s *postgresStore) List(ctx context.Context, scope visibility.BookScope) ([]*Book, error) {
	ctx, span := s.tracer.Start(ctx, "books.list", trace.WithAttributes(
		attribute.Bool("scope.published_only", scope.PublishedOnly),
		attribute.String("scope.added_by", scope.AddedBy),
	))
	defer span.End()

	books := []*Book{}
	if scope.IsZero() {
		return books, nil
	}

	var (
		where []string
		args  []interface{}
	)
	if scope.PublishedOnly {
		args = append(args, visibility.Published)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if scope.AddedBy != "" {
		args = append(args, scope.AddedBy)
		where = append(where, fmt.Sprintf("added_by = $%d", len(args)))
	}
	query := `SELECT ` + bookColumns + ` FROM books WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`

	if err := s.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, apperr.Store("list books", err)
	}
	return books, nil
}

func (s *postgresStore) Update(ctx context.Context, id uuid.UUID, patch BookPatch, now time.Time) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "books.update", trace.WithAttributes(attribute.String("book.id", id.String())))
	defer span.End()

	args := []interface{}{id, patch.AddedBy, now}
	set := []string{"updated_at = $3"}
	column := func(name string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", name, len(args)))
	}
	if patch.CustomID != nil {
		column("custom_id", *patch.CustomID)
	}
	if patch.BookName != nil {
		column("book_name", *patch.BookName)
	}
	if patch.BookAuthor != nil {
		column("book_author", *patch.BookAuthor)
	}
	if patch.BookImage != nil {
		column("book_image", *patch.BookImage)
	}
	if patch.Price != nil {
		column("price", *patch.Price)
	}
	if patch.Category != nil {
		column("category", *patch.Category)
	}
	if patch.Description != nil {
		column("description", *patch.Description)
	}
	if patch.Status != nil {
		column("status", string(*patch.Status))
	}

	query := `
		UPDATE books
		SET ` + strings.Join(set, ", ") + `
		WHERE id = $1 AND added_by = $2
		RETURNING ` + bookColumns

	book := &Book{}
	err := s.db.GetContext(ctx, book, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("book %s for librarian %s", id, patch.AddedBy)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("custom id is already in use")
		}
		return nil, apperr.Store("update book", err)
	}
	return book, nil
}

func (s *postgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "books.delete", trace.WithAttributes(attribute.String("book.id", id.String())))
	defer span.End()

	res, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return apperr.Store("delete book", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Store("delete book", err)
	}
	if n == 0 {
		return apperr.NotFound("book %s", id)
	}
	return nil
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
