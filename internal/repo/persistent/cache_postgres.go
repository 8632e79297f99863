package persistent

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/pkg/postgres"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

const (
	// Table
	cacheTable = "query_cache"

	// Columns
	cacheKeyColumn        = "cache_key"
	cachePromptColumn     = "prompt"
	cacheSchemaJSONColumn = "schema_json"
	cacheImageHashColumn  = "image_hash"
	cacheResultColumn     = "result"
	cacheCreatedAtColumn  = "created_at"
)

type CacheRepo struct {
	*postgres.Postgres
}

func NewCacheRepo(pg *postgres.Postgres) *CacheRepo {
	return &CacheRepo{pg}
}

func (r *CacheRepo) Lookup(ctx context.Context, cacheKey string) (*entity.CacheEntry, error) {
	sql, args, err := r.Builder.
		Select(
			cacheKeyColumn,
			cachePromptColumn,
			cacheSchemaJSONColumn,
			cacheImageHashColumn,
			cacheResultColumn,
			cacheCreatedAtColumn,
		).
		From(cacheTable).
		Where(squirrel.Eq{cacheKeyColumn: cacheKey}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("CacheRepo - Lookup - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var entry entity.CacheEntry
	err = executor.QueryRow(ctx, sql, args...).Scan(
		&entry.CacheKey,
		&entry.Prompt,
		&entry.SchemaJSON,
		&entry.ImageHash,
		&entry.Result,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("CacheRepo - Lookup: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("CacheRepo - Lookup - executor.QueryRow: %w", err)
	}

	return &entry, nil
}

// InsertIfAbsent is the at-most-one-winner insert: ON CONFLICT DO
// NOTHING means two racing misses both return without error, exactly one
// with stored == true, and the persisted row is never overwritten.
func (r *CacheRepo) InsertIfAbsent(ctx context.Context, entry *entity.CacheEntry) (bool, error) {
	sql, args, err := r.Builder.
		Insert(cacheTable).
		Columns(
			cacheKeyColumn,
			cachePromptColumn,
			cacheSchemaJSONColumn,
			cacheImageHashColumn,
			cacheResultColumn,
			cacheCreatedAtColumn,
		).
		Values(
			entry.CacheKey,
			entry.Prompt,
			entry.SchemaJSON,
			entry.ImageHash,
			entry.Result,
			entry.CreatedAt,
		).
		Suffix("ON CONFLICT (" + cacheKeyColumn + ") DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("CacheRepo - InsertIfAbsent - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("CacheRepo - InsertIfAbsent - executor.Exec: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
