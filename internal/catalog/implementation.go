// internal/catalog/implementation.go
package catalog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookcourier/internal/apperr"
	"bookcourier/internal/validation"
	"bookcourier/internal/visibility"
	"bookcourier/pkg/eventstore"
)

const aggregateType = "book"

// service implements the Service interface.
type service struct {
	store      Store
	eventStore eventstore.Store
	validate   *validation.Validator
	log        *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewService creates a new catalog service instance. eventStore may be nil.
func NewService(store Store, es eventstore.Store, log *slog.Logger) Service {
	return &service{
		store:      store,
		eventStore: es,
		validate:   validation.New(),
		log:        log,
		tracer:     otel.Tracer("bookcourier/catalog"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateBook validates and stores a new book. Status defaults to published.
func (s *service) CreateBook(ctx context.Context, in NewBook) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.create_book")
	defer span.End()

	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if err := validation.Money("price", *in.Price); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = StatusPublished
	}

	now := s.now()
	book := &Book{
		ID:          uuid.New(),
		CustomID:    strings.TrimSpace(in.CustomID),
		BookName:    in.BookName,
		BookAuthor:  in.BookAuthor,
		BookImage:   in.BookImage,
		Price:       *in.Price,
		Category:    in.Category,
		Description: in.Description,
		AddedBy:     in.AddedBy,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, book); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("book.id", book.ID.String()))

	s.record(ctx, book.ID, "BookAdded", BookAddedEvent{
		ID:       book.ID,
		BookName: book.BookName,
		AddedBy:  book.AddedBy,
		Status:   book.Status,
	})
	return book, nil
}

// UpdateBook applies an owner-scoped patch.
func (s *service) UpdateBook(ctx context.Context, id uuid.UUID, patch BookPatch) (*Book, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.update_book", trace.WithAttributes(attribute.String("book.id", id.String())))
	defer span.End()

	if err := patch.Validate(); err != nil {
		return nil, err
	}
	book, err := s.store.Update(ctx, id, patch, s.now())
	if err != nil {
		return nil, err
	}
	s.record(ctx, id, "BookUpdated", BookUpdatedEvent{ID: id, Status: book.Status})
	return book, nil
}

// DeleteBook removes a book. Orders referencing it keep their copy of the title.
func (s *service) DeleteBook(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "catalog.delete_book", trace.WithAttributes(attribute.String("book.id", id.String())))
	defer span.End()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, id, "BookRemoved", BookRemovedEvent{ID: id})
	return nil
}

func (s *service) PublishedBooks(ctx context.Context) ([]*Book, error) {
	return s.store.List(ctx, visibility.BuyerBooks())
}

func (s *service) PublishedBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	book, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibility.BuyerCanSee(string(book.Status)) {
		return nil, apperr.NotFound("book %s", id)
	}
	return book, nil
}

func (s *service) PublishedBookByCustomID(ctx context.Context, customID string) (*Book, error) {
	customID = strings.TrimSpace(customID)
	if customID == "" {
		return nil, apperr.Validation("custom id is required")
	}
	book, err := s.store.GetByCustomID(ctx, customID)
	if err != nil {
		return nil, err
	}
	if !visibility.BuyerCanSee(string(book.Status)) {
		return nil, apperr.NotFound("book with custom id %q", customID)
	}
	return book, nil
}

func (s *service) LibrarianBooks(ctx context.Context, librarian string) ([]*Book, error) {
	if strings.TrimSpace(librarian) == "" {
		return nil, apperr.Validation("librarian email is required")
	}
	return s.store.List(ctx, visibility.LibrarianBooks(librarian))
}

// record appends to the book's history. The write it describes has already
// succeeded, so failures are logged rather than returned.
func (s *service) record(ctx context.Context, id uuid.UUID, eventType string, data any) {
	if s.eventStore == nil {
		return
	}
	if err := eventstore.Append(ctx, s.eventStore, id, aggregateType, eventType, data); err != nil {
		s.log.Warn("failed to record book event", "book_id", id, "event", eventType, "err", err)
	}
}
