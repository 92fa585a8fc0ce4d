// Package visibility decides which books and orders a caller may read.
//
// Role is inferred from the endpoint a request arrives on; this package only
// turns a role and identity into a read scope. Stores translate scopes into
// queries, and the Allows methods are the reference semantics those queries
// must match.
package visibility

import (
	"slices"

	"github.com/google/uuid"
)

// Book visibility flags.
const (
	Published   = "published"
	Unpublished = "unpublished"
)

// BookScope is the set of books a caller may read. The zero scope admits nothing.
type BookScope struct {
	PublishedOnly bool
	AddedBy       string
}

// BuyerBooks is the buyer catalog: published books from every librarian.
func BuyerBooks() BookScope {
	return BookScope{PublishedOnly: true}
}

// LibrarianBooks is a librarian's own catalog, published or not.
func LibrarianBooks(email string) BookScope {
	return BookScope{AddedBy: email}
}

func (s BookScope) IsZero() bool {
	return !s.PublishedOnly && s.AddedBy == ""
}

// Allows reports whether a book with the given status and owner is in scope.
func (s BookScope) Allows(status, addedBy string) bool {
	if s.IsZero() {
		return false
	}
	if s.PublishedOnly && status != Published {
		return false
	}
	if s.AddedBy != "" && s.AddedBy != addedBy {
		return false
	}
	return true
}

// BuyerCanSee is the single-book rule for buyers: unpublished and missing books
// are indistinguishable.
func BuyerCanSee(status string) bool {
	return status == Published
}

// OrderScope is the set of orders a caller may read or act on. The zero scope
// admits nothing, and a by-book scope with no book ids admits nothing.
type OrderScope struct {
	UserEmail string
	ByBook    bool
	BookIDs   []uuid.UUID
}

// UserOrders scopes orders to their purchaser.
func UserOrders(email string) OrderScope {
	return OrderScope{UserEmail: email}
}

// LibrarianOrders scopes orders to those referencing one of the librarian's
// books. owned is read separately beforehand; the two reads are not atomic.
func LibrarianOrders(owned []uuid.UUID) OrderScope {
	return OrderScope{ByBook: true, BookIDs: slices.Clone(owned)}
}

// Empty reports whether the scope can match no order at all.
func (s OrderScope) Empty() bool {
	if s.ByBook {
		return len(s.BookIDs) == 0
	}
	return s.UserEmail == ""
}

// Allows reports whether an order placed by userEmail for bookID is in scope.
func (s OrderScope) Allows(userEmail string, bookID uuid.UUID) bool {
	if s.Empty() {
		return false
	}
	if s.ByBook {
		if !slices.Contains(s.BookIDs, bookID) {
			return false
		}
		return s.UserEmail == "" || s.UserEmail == userEmail
	}
	return s.UserEmail == userEmail
}
