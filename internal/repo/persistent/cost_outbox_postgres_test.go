package persistent

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okushnikov/structured-query/internal/entity"
)

func TestStatusUpdate(t *testing.T) {
	builder := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	ids := uuid.UUIDs{uuid.New(), uuid.New()}

	t.Run("processing does not stamp relayed_at", func(t *testing.T) {
		sql, _, err := statusUpdate(builder, ids, entity.Processing).ToSql()
		require.NoError(t, err)

		assert.Contains(t, sql, "status")
		assert.NotContains(t, sql, "relayed_at")
	})

	t.Run("processed stamps relayed_at", func(t *testing.T) {
		sql, _, err := statusUpdate(builder, ids, entity.Processed).ToSql()
		require.NoError(t, err)

		assert.Contains(t, sql, "relayed_at")
	})
}
