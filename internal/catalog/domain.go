// internal/catalog/domain.go
package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookcourier/internal/apperr"
	"bookcourier/internal/validation"
	"bookcourier/internal/visibility"
)

type BookStatus string

const (
	StatusPublished   BookStatus = visibility.Published
	StatusUnpublished BookStatus = visibility.Unpublished
)

func (s BookStatus) Valid() bool {
	return s == StatusPublished || s == StatusUnpublished
}

// Book is a catalog entry owned by the librarian in AddedBy.
type Book struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CustomID    string          `json:"customId,omitempty" db:"custom_id"`
	BookName    string          `json:"bookName" db:"book_name"`
	BookAuthor  string          `json:"bookAuthor" db:"book_author"`
	BookImage   string          `json:"bookImage" db:"book_image"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Category    string          `json:"category,omitempty" db:"category"`
	Description string          `json:"description,omitempty" db:"description"`
	AddedBy     string          `json:"addedBy" db:"added_by"`
	Status      BookStatus      `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// NewBook is the librarian's create request.
type NewBook struct {
	CustomID    string           `json:"customId"`
	BookName    string           `json:"bookName" validate:"required"`
	BookAuthor  string           `json:"bookAuthor" validate:"required"`
	BookImage   string           `json:"bookImage" validate:"required"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	AddedBy     string           `json:"addedBy" validate:"required,email"`
	Status      BookStatus       `json:"status" validate:"omitempty,oneof=published unpublished"`
}

// BookPatch carries an owner-scoped partial update. AddedBy selects the owner
// and is never written; nil fields are left untouched.
type BookPatch struct {
	AddedBy     string           `json:"addedBy"`
	CustomID    *string          `json:"customId"`
	BookName    *string          `json:"bookName"`
	BookAuthor  *string          `json:"bookAuthor"`
	BookImage   *string          `json:"bookImage"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Status      *BookStatus      `json:"status"`
}

func (p BookPatch) Validate() error {
	if strings.TrimSpace(p.AddedBy) == "" {
		return apperr.Validation("missing required fields: addedBy")
	}
	for field, v := range map[string]*string{"bookName": p.BookName, "bookAuthor": p.BookAuthor, "bookImage": p.BookImage} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return apperr.Validation("%s cannot be empty", field)
		}
	}
	if p.Price != nil {
		if err := validation.Money("price", *p.Price); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return apperr.Validation("status must be one of published, unpublished")
	}
	return nil
}

// Apply copies the supplied fields onto b and stamps UpdatedAt.
func (p BookPatch) Apply(b *Book, now time.Time) {
	if p.CustomID != nil {
		b.CustomID = *p.CustomID
	}
	if p.BookName != nil {
		b.BookName = *p.BookName
	}
	if p.BookAuthor != nil {
		b.BookAuthor = *p.BookAuthor
	}
	if p.BookImage != nil {
		b.BookImage = *p.BookImage
	}
	if p.Price != nil {
		b.Price = *p.Price
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	b.UpdatedAt = now
}

// BookAddedEvent is recorded when a librarian adds a book.
type BookAddedEvent struct {
	ID       uuid.UUID  `json:"id"`
	BookName string     `json:"bookName"`
	AddedBy  string     `json:"addedBy"`
	Status   BookStatus `json:"status"`
}

// BookUpdatedEvent is recorded on every owner update.
type BookUpdatedEvent struct {
	ID     uuid.UUID  `json:"id"`
	Status BookStatus `json:"status"`
}

// BookRemovedEvent is recorded when a book is deleted.
type BookRemovedEvent struct {
	ID uuid.UUID `json:"id"`
}
