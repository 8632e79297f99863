package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

func TestBuildSchemaDescriptor(t *testing.T) {
	t.Run("strict object schema with every field required", func(t *testing.T) {
		b, err := buildSchemaDescriptor([]entity.FieldDefinition{
			textField("title"),
			numberField("total"),
		})
		require.NoError(t, err)

		var descriptor schemaDescriptor
		require.NoError(t, json.Unmarshal(b, &descriptor))

		assert.Equal(t, "object", descriptor.Type)
		assert.False(t, descriptor.AdditionalProperties)
		assert.ElementsMatch(t, []string{"title", "total"}, descriptor.Required)
		assert.Equal(t, "string", descriptor.Properties["title"].Type)
		assert.Equal(t, "number", descriptor.Properties["total"].Type)
	})

	t.Run("duplicate names rejected", func(t *testing.T) {
		_, err := buildSchemaDescriptor([]entity.FieldDefinition{textField("a"), numberField("a")})
		assert.ErrorIs(t, err, errs.ErrEncoding)
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		_, err := buildSchemaDescriptor([]entity.FieldDefinition{{Name: "a", Type: "boolean"}})
		assert.ErrorIs(t, err, errs.ErrEncoding)
	})
}

func TestValidateResult(t *testing.T) {
	fields := []entity.FieldDefinition{textField("title"), numberField("total")}

	t.Run("valid object passes", func(t *testing.T) {
		err := validateResult(fields, []byte(`{"title": "invoice", "total": 12.5}`))
		assert.NoError(t, err)
	})

	t.Run("integer is a valid number", func(t *testing.T) {
		err := validateResult(fields, []byte(`{"title": "invoice", "total": 3}`))
		assert.NoError(t, err)
	})

	t.Run("not json at all", func(t *testing.T) {
		err := validateResult(fields, []byte(`certainly! here is your JSON`))
		assert.ErrorIs(t, err, errs.ErrSchemaViolation)
	})

	t.Run("array instead of object", func(t *testing.T) {
		err := validateResult(fields, []byte(`[1, 2]`))
		assert.ErrorIs(t, err, errs.ErrSchemaViolation)
	})

	t.Run("missing field", func(t *testing.T) {
		err := validateResult(fields, []byte(`{"title": "invoice"}`))
		assert.ErrorIs(t, err, errs.ErrSchemaViolation)
	})

	t.Run("extra field", func(t *testing.T) {
		err := validateResult(fields, []byte(`{"title": "t", "total": 1, "extra": true}`))
		assert.ErrorIs(t, err, errs.ErrSchemaViolation)
	})

	t.Run("number as quoted string", func(t *testing.T) {
		err := validateResult(fields, []byte(`{"title": "t", "total": "12.5"}`))
		assert.ErrorIs(t, err, errs.ErrSchemaViolation)
	})

	t.Run("text as number", func(t *testing.T) {
		err := validateResult(fields, []byte(`{"title": 42, "total": 1}`))
		assert.ErrorIs(t, err, errs.ErrSchemaViolation)
	})

	t.Run("null is neither text nor number", func(t *testing.T) {
		err := validateResult(fields, []byte(`{"title": null, "total": 1}`))
		assert.ErrorIs(t, err, errs.ErrSchemaViolation)
	})
}
