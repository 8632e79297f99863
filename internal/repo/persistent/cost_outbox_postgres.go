package persistent

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/pkg/postgres"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

const (
	// Table
	costOutboxTable = "cost_outbox"

	// Columns
	costIDColumn         = "id"
	costUserIDColumn     = "user_id"
	costPayloadColumn    = "payload"
	costStatusColumn     = "status"
	costCreatedAtColumn  = "created_at"
	costRelayedAtColumn  = "relayed_at"
	costRetryCountColumn = "retry_count"
)

type CostOutboxRepo struct {
	*postgres.Postgres
}

func NewCostOutboxRepo(pg *postgres.Postgres) *CostOutboxRepo {
	return &CostOutboxRepo{pg}
}

func (r *CostOutboxRepo) Create(ctx context.Context, event *entity.CostEvent) error {
	sql, args, err := r.Builder.
		Insert(costOutboxTable).
		Columns(
			costIDColumn,
			costUserIDColumn,
			costPayloadColumn,
			costStatusColumn,
			costCreatedAtColumn,
			costRetryCountColumn,
		).
		Values(
			event.ID,
			event.UserID,
			event.Payload,
			event.Status,
			event.CreatedAt,
			event.RetryCount,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("CostOutboxRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("CostOutboxRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

func (r *CostOutboxRepo) GetPendingEvents(ctx context.Context, maxRetries, limit int) ([]*entity.CostEvent, error) {
	sql, args, err := r.Builder.
		Select(
			costIDColumn,
			costUserIDColumn,
			costPayloadColumn,
			costStatusColumn,
			costCreatedAtColumn,
			costRelayedAtColumn,
			costRetryCountColumn,
		).
		From(costOutboxTable).
		Where(squirrel.And{
			squirrel.Eq{costStatusColumn: entity.Pending},
			squirrel.Lt{costRetryCountColumn: maxRetries},
		}).
		OrderBy(costCreatedAtColumn + " ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("CostOutboxRepo - GetPendingEvents - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("CostOutboxRepo - GetPendingEvents - executor.Query: %w", err)
	}
	defer rows.Close()

	events := make([]*entity.CostEvent, 0, limit)
	for rows.Next() {
		var event entity.CostEvent
		err = rows.Scan(
			&event.ID,
			&event.UserID,
			&event.Payload,
			&event.Status,
			&event.CreatedAt,
			&event.RelayedAt,
			&event.RetryCount,
		)
		if err != nil {
			return nil, fmt.Errorf("CostOutboxRepo - GetPendingEvents - rows.Scan: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("CostOutboxRepo - GetPendingEvents - rows.Err: %w", err)
	}

	return events, nil
}

func (r *CostOutboxRepo) MarkAsProcessingBatch(ctx context.Context, ids uuid.UUIDs) error {
	return r.setStatusBatch(ctx, ids, entity.Processing, "MarkAsProcessingBatch")
}

func (r *CostOutboxRepo) MarkAsProcessedBatch(ctx context.Context, ids uuid.UUIDs) error {
	return r.setStatusBatch(ctx, ids, entity.Processed, "MarkAsProcessedBatch")
}

// statusUpdate builds the batch status transition. relayed_at is stamped
// only on processed: a processing batch may still fail and go back to
// pending, and a pending row must not carry a relay timestamp.
func statusUpdate(builder squirrel.StatementBuilderType, ids uuid.UUIDs, status entity.Status) squirrel.UpdateBuilder {
	update := builder.
		Update(costOutboxTable).
		Set(costStatusColumn, status).
		Where(squirrel.Eq{costIDColumn: ids})

	if status == entity.Processed {
		update = update.Set(costRelayedAtColumn, time.Now())
	}

	return update
}

func (r *CostOutboxRepo) setStatusBatch(ctx context.Context, ids uuid.UUIDs, status entity.Status, method string) error {
	sql, args, err := statusUpdate(r.Builder, ids, status).ToSql()
	if err != nil {
		return fmt.Errorf("CostOutboxRepo - %s - r.Builder.ToSql: %w", method, err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("CostOutboxRepo - %s - executor.Exec: %w", method, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("CostOutboxRepo - %s: %w", method, errs.ErrRecordNotFound)
	}

	return nil
}

func (r *CostOutboxRepo) IncrementRetryCountBatch(ctx context.Context, ids uuid.UUIDs) error {
	sql, args, err := r.Builder.
		Update(costOutboxTable).
		Set(costRetryCountColumn, squirrel.Expr(costRetryCountColumn+" + 1")).
		Set(costStatusColumn, entity.Pending).
		Where(squirrel.Eq{costIDColumn: ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("CostOutboxRepo - IncrementRetryCountBatch - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("CostOutboxRepo - IncrementRetryCountBatch - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("CostOutboxRepo - IncrementRetryCountBatch: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *CostOutboxRepo) MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error {
	sql, args, err := r.Builder.
		Update(costOutboxTable).
		Set(costStatusColumn, entity.Failed).
		Where(squirrel.And{
			squirrel.Eq{costStatusColumn: string(entity.Pending)},
			squirrel.GtOrEq{costRetryCountColumn: maxRetries},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("CostOutboxRepo - MarkMaxRetriesAsFailed - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("CostOutboxRepo - MarkMaxRetriesAsFailed - executor.Exec: %w", err)
	}

	return nil
}

func (r *CostOutboxRepo) DeleteOldProcessedAndFailed(ctx context.Context) (int64, error) {
	sql, args, err := r.Builder.
		Delete(costOutboxTable).
		Where(squirrel.Or{
			squirrel.Eq{costStatusColumn: string(entity.Processed)},
			squirrel.Eq{costStatusColumn: string(entity.Failed)},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("CostOutboxRepo - DeleteOldProcessedAndFailed - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("CostOutboxRepo - DeleteOldProcessedAndFailed - executor.Exec: %w", err)
	}

	return tag.RowsAffected(), nil
}
