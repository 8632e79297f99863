package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/pkg/postgres"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

const (
	// Table
	usageTable = "model_usage"

	// Columns
	usageUserIDColumn      = "user_id"
	usageCallsColumn       = "calls"
	usageFailedCallsColumn = "failed_calls"
	usageUpdatedAtColumn   = "updated_at"
)

type UsageRepo struct {
	*postgres.Postgres
}

func NewUsageRepo(pg *postgres.Postgres) *UsageRepo {
	return &UsageRepo{pg}
}

// Add upserts the per-user aggregate; concurrent consumers are safe
// because the increment happens inside the ON CONFLICT update.
func (r *UsageRepo) Add(ctx context.Context, userID uuid.UUID, calls, failedCalls int64) error {
	sql, args, err := r.Builder.
		Insert(usageTable).
		Columns(usageUserIDColumn, usageCallsColumn, usageFailedCallsColumn, usageUpdatedAtColumn).
		Values(userID, calls, failedCalls, time.Now()).
		Suffix(fmt.Sprintf(
			"ON CONFLICT (%s) DO UPDATE SET %s = %s.%s + EXCLUDED.%s, %s = %s.%s + EXCLUDED.%s, %s = EXCLUDED.%s",
			usageUserIDColumn,
			usageCallsColumn, usageTable, usageCallsColumn, usageCallsColumn,
			usageFailedCallsColumn, usageTable, usageFailedCallsColumn, usageFailedCallsColumn,
			usageUpdatedAtColumn, usageUpdatedAtColumn,
		)).
		ToSql()
	if err != nil {
		return fmt.Errorf("UsageRepo - Add - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("UsageRepo - Add - executor.Exec: %w", err)
	}

	return nil
}

func (r *UsageRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.ModelUsage, error) {
	sql, args, err := r.Builder.
		Select(usageUserIDColumn, usageCallsColumn, usageFailedCallsColumn, usageUpdatedAtColumn).
		From(usageTable).
		Where(squirrel.Eq{usageUserIDColumn: userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("UsageRepo - GetByUserID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var usage entity.ModelUsage
	err = executor.QueryRow(ctx, sql, args...).Scan(
		&usage.UserID,
		&usage.Calls,
		&usage.FailedCalls,
		&usage.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("UsageRepo - GetByUserID: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("UsageRepo - GetByUserID - executor.QueryRow: %w", err)
	}

	return &usage, nil
}
