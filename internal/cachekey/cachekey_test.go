package cachekey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

func fields(pairs ...string) []entity.FieldDefinition {
	fs := make([]entity.FieldDefinition, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		fs = append(fs, entity.FieldDefinition{
			Name: pairs[i],
			Type: entity.FieldType(pairs[i+1]),
		})
	}

	return fs
}

func TestBuild(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		first, err := Build("total on the receipt", fields("total", "number"), "")
		require.NoError(t, err)

		second, err := Build("total on the receipt", fields("total", "number"), "")
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("field order changes the key", func(t *testing.T) {
		ordered, err := Build("p", fields("a", "text", "b", "number"), "")
		require.NoError(t, err)

		reversed, err := Build("p", fields("b", "number", "a", "text"), "")
		require.NoError(t, err)

		assert.NotEqual(t, ordered, reversed)
	})

	t.Run("field type changes the key", func(t *testing.T) {
		asText, err := Build("p", fields("total", "text"), "")
		require.NoError(t, err)

		asNumber, err := Build("p", fields("total", "number"), "")
		require.NoError(t, err)

		assert.NotEqual(t, asText, asNumber)
	})

	t.Run("prompt whitespace is significant", func(t *testing.T) {
		plain, err := Build("what is the total", fields("total", "number"), "")
		require.NoError(t, err)

		padded, err := Build("what is the total ", fields("total", "number"), "")
		require.NoError(t, err)

		assert.NotEqual(t, plain, padded)
	})

	t.Run("image presence changes the key", func(t *testing.T) {
		without, err := Build("p", fields("a", "text"), "")
		require.NoError(t, err)

		with, err := Build("p", fields("a", "text"), strings.Repeat("ab", 32))
		require.NoError(t, err)

		assert.NotEqual(t, without, with)
	})

	t.Run("no collision between boundary shifts", func(t *testing.T) {
		// "ab" + field "c" vs "a" + field "bc": length prefixes keep the
		// component boundaries apart.
		first, err := Build("ab", fields("c", "text"), "")
		require.NoError(t, err)

		second, err := Build("a", fields("bc", "text"), "")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("duplicate field names are rejected", func(t *testing.T) {
		_, err := Build("p", fields("total", "number", "total", "text"), "")
		assert.ErrorIs(t, err, errs.ErrEncoding)
	})

	t.Run("unknown field type is rejected", func(t *testing.T) {
		_, err := Build("p", fields("total", "decimal"), "")
		assert.ErrorIs(t, err, errs.ErrEncoding)
	})
}
