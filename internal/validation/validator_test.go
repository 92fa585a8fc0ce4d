package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcourier/internal/apperr"
)

type sample struct {
	Name  string `json:"bookName" validate:"required"`
	Email string `json:"addedBy" validate:"required,email"`
	Kind  string `json:"status" validate:"omitempty,oneof=published unpublished"`
}

func TestStruct(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(sample{Name: "Dune", Email: "lib@example.com"}))

	err := v.Struct(sample{Kind: "draft"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "missing required fields: addedBy, bookName")
	assert.Contains(t, err.Error(), "invalid fields: status (oneof)")

	err = v.Struct(sample{Name: "Dune", Email: "not-an-email"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "addedBy (email)")
}
