package apperr

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsWrapSentinels(t *testing.T) {
	assert.ErrorIs(t, Validation("bad %s", "id"), ErrValidation)
	assert.ErrorIs(t, NotFound("order %d", 7), ErrNotFound)
	assert.ErrorIs(t, Conflict("only pending orders can be cancelled"), ErrConflict)
	assert.ErrorIs(t, Forbidden("disabled"), ErrForbidden)
	assert.EqualError(t, Validation("invalid order id"), "validation error: invalid order id")
}

func TestStore(t *testing.T) {
	assert.NoError(t, Store("insert book", nil))

	err := Store("insert book", sql.ErrConnDone)
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, sql.ErrConnDone)

	notFound := NotFound("book")
	assert.Same(t, notFound, Store("get book", notFound))
}

func TestClassified(t *testing.T) {
	assert.True(t, Classified(Conflict("x")))
	assert.False(t, Classified(errors.New("boom")))
}
