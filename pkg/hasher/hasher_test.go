package hasher

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okushnikov/structured-query/pkg/types/errs"
)

func TestHashBytes(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, HashBytes([]byte("payload")), HashBytes([]byte("payload")))
	})

	t.Run("known vector", func(t *testing.T) {
		// sha256("")
		assert.Equal(t,
			"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
			HashBytes(nil))
	})

	t.Run("different bytes different digest", func(t *testing.T) {
		assert.NotEqual(t, HashBytes([]byte("a")), HashBytes([]byte("b")))
	})
}

func TestHashStructured(t *testing.T) {
	t.Run("deterministic across map iteration order", func(t *testing.T) {
		value := map[string]any{"name": "invoice", "total": 12.5, "paid": true}

		first, err := HashStructured(value)
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			again, err := HashStructured(map[string]any{"total": 12.5, "paid": true, "name": "invoice"})
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("value and its string rendering differ", func(t *testing.T) {
		asNumber, err := HashStructured(float64(1))
		require.NoError(t, err)

		asString, err := HashStructured("1")
		require.NoError(t, err)

		assert.NotEqual(t, asNumber, asString)
	})

	t.Run("nesting is not flattened", func(t *testing.T) {
		flat, err := HashStructured([]any{"a", "b"})
		require.NoError(t, err)

		nested, err := HashStructured([]any{[]any{"a", "b"}})
		require.NoError(t, err)

		assert.NotEqual(t, flat, nested)
	})

	t.Run("empty containers differ from nil", func(t *testing.T) {
		asNil, err := HashStructured(nil)
		require.NoError(t, err)

		asMap, err := HashStructured(map[string]any{})
		require.NoError(t, err)

		asArray, err := HashStructured([]any{})
		require.NoError(t, err)

		assert.NotEqual(t, asNil, asMap)
		assert.NotEqual(t, asNil, asArray)
		assert.NotEqual(t, asMap, asArray)
	})

	t.Run("integer kinds agree with float64", func(t *testing.T) {
		asFloat, err := HashStructured(float64(7))
		require.NoError(t, err)

		asInt, err := HashStructured(7)
		require.NoError(t, err)

		assert.Equal(t, asFloat, asInt)
	})

	t.Run("integers beyond exact float64 range are rejected", func(t *testing.T) {
		// 2^53 is the last exactly representable integer; 2^53+1 would
		// canonicalize to the same bytes as 2^53
		_, err := HashStructured(int64(1)<<53 + 1)
		assert.ErrorIs(t, err, errs.ErrEncoding)

		_, err = HashStructured(-(int64(1)<<53 + 1))
		assert.ErrorIs(t, err, errs.ErrEncoding)

		_, err = HashStructured(int64(1) << 53)
		assert.NoError(t, err)
	})

	t.Run("non-finite numbers are rejected", func(t *testing.T) {
		_, err := HashStructured(math.NaN())
		assert.ErrorIs(t, err, errs.ErrEncoding)

		_, err = HashStructured(math.Inf(1))
		assert.ErrorIs(t, err, errs.ErrEncoding)
	})

	t.Run("unsupported type is rejected", func(t *testing.T) {
		_, err := HashStructured(struct{}{})
		assert.ErrorIs(t, err, errs.ErrEncoding)
	})
}
