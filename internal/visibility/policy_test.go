package visibility

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestBuyerBooksNeverAdmitsUnpublished(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		owner := rapid.StringMatching(`[a-z]{1,8}@example\.com`).Draw(t, "owner")
		status := rapid.SampledFrom([]string{Published, Unpublished, "", "draft"}).Draw(t, "status")

		got := BuyerBooks().Allows(status, owner)
		if got != (status == Published) {
			t.Fatalf("buyer scope admitted status %q: %v", status, got)
		}
		if BuyerCanSee(status) != got {
			t.Fatalf("single-book rule disagrees with catalog scope for %q", status)
		}
	})
}

func TestLibrarianBooksAdmitsOwnBooksOnly(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		librarian := rapid.StringMatching(`[a-z]{1,6}@lib\.org`).Draw(t, "librarian")
		owner := rapid.SampledFrom([]string{librarian, "other@lib.org"}).Draw(t, "owner")
		status := rapid.SampledFrom([]string{Published, Unpublished}).Draw(t, "status")

		got := LibrarianBooks(librarian).Allows(status, owner)
		if got != (owner == librarian) {
			t.Fatalf("librarian %q, owner %q, status %q: got %v", librarian, owner, status, got)
		}
	})
}

func TestZeroScopesAdmitNothing(t *testing.T) {
	assert.False(t, BookScope{}.Allows(Published, "a@example.com"))
	assert.False(t, LibrarianBooks("").Allows(Published, ""))

	assert.True(t, OrderScope{}.Empty())
	assert.False(t, OrderScope{}.Allows("", uuid.Nil))
	assert.True(t, LibrarianOrders(nil).Empty())
	assert.False(t, LibrarianOrders(nil).Allows("buyer@example.com", uuid.New()))
}

func TestOrderScopes(t *testing.T) {
	mine, theirs := uuid.New(), uuid.New()

	user := UserOrders("buyer@example.com")
	assert.True(t, user.Allows("buyer@example.com", theirs))
	assert.False(t, user.Allows("someone@example.com", mine))

	librarian := LibrarianOrders([]uuid.UUID{mine})
	assert.True(t, librarian.Allows("anyone@example.com", mine))
	assert.False(t, librarian.Allows("anyone@example.com", theirs))
}

func TestLibrarianOrdersCopiesOwnedIDs(t *testing.T) {
	owned := []uuid.UUID{uuid.New()}
	scope := LibrarianOrders(owned)
	owned[0] = uuid.New()
	assert.NotEqual(t, owned[0], scope.BookIDs[0])
}
