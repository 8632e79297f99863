package persistent

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/pkg/postgres"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

// Postgres unique_violation error code.
const pgUniqueViolation = "23505"

const (
	// Table
	imagesTable = "images"

	// Columns
	imageIDColumn          = "id"
	imageOwnerIDColumn     = "owner_id"
	imageObjectKeyColumn   = "object_key"
	imageContentTypeColumn = "content_type"
	imageContentHashColumn = "content_hash"
	imageSizeColumn        = "size"
	imageWidthColumn       = "width"
	imageHeightColumn      = "height"
	imageCreatedAtColumn   = "created_at"
)

type ImageRepo struct {
	*postgres.Postgres
}

func NewImageRepo(pg *postgres.Postgres) *ImageRepo {
	return &ImageRepo{pg}
}

// Create inserts an image row. The table carries UNIQUE (owner_id,
// content_hash); when a concurrent upload of the same bytes wins first,
// the unique violation is mapped to errs.ErrAlreadyExists so the caller
// can retry as a reader.
func (r *ImageRepo) Create(ctx context.Context, image *entity.Image) error {
	sql, args, err := r.Builder.
		Insert(imagesTable).
		Columns(
			imageIDColumn,
			imageOwnerIDColumn,
			imageObjectKeyColumn,
			imageContentTypeColumn,
			imageContentHashColumn,
			imageSizeColumn,
			imageWidthColumn,
			imageHeightColumn,
			imageCreatedAtColumn,
		).
		Values(
			image.ID,
			image.OwnerID,
			image.ObjectKey,
			image.ContentType,
			image.ContentHash,
			image.Size,
			image.Width,
			image.Height,
			image.CreatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("ImageRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("ImageRepo - Create: %w", errs.ErrAlreadyExists)
		}
		return fmt.Errorf("ImageRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

func (r *ImageRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Image, error) {
	sql, args, err := r.Builder.
		Select(imageColumns()...).
		From(imagesTable).
		Where(squirrel.Eq{imageIDColumn: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ImageRepo - GetByID - r.Builder.ToSql: %w", err)
	}

	return r.scanOne(ctx, sql, args, "GetByID")
}

func (r *ImageRepo) GetByOwnerAndHash(ctx context.Context, ownerID uuid.UUID, contentHash string) (*entity.Image, error) {
	sql, args, err := r.Builder.
		Select(imageColumns()...).
		From(imagesTable).
		Where(squirrel.And{
			squirrel.Eq{imageOwnerIDColumn: ownerID},
			squirrel.Eq{imageContentHashColumn: contentHash},
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ImageRepo - GetByOwnerAndHash - r.Builder.ToSql: %w", err)
	}

	return r.scanOne(ctx, sql, args, "GetByOwnerAndHash")
}

func (r *ImageRepo) scanOne(ctx context.Context, sql string, args []any, method string) (*entity.Image, error) {
	executor := r.GetExecutor(ctx)

	var image entity.Image
	err := executor.QueryRow(ctx, sql, args...).Scan(
		&image.ID,
		&image.OwnerID,
		&image.ObjectKey,
		&image.ContentType,
		&image.ContentHash,
		&image.Size,
		&image.Width,
		&image.Height,
		&image.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ImageRepo - %s: %w", method, errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("ImageRepo - %s - executor.QueryRow: %w", method, err)
	}

	return &image, nil
}

func imageColumns() []string {
	return []string{
		imageIDColumn,
		imageOwnerIDColumn,
		imageObjectKeyColumn,
		imageContentTypeColumn,
		imageContentHashColumn,
		imageSizeColumn,
		imageWidthColumn,
		imageHeightColumn,
		imageCreatedAtColumn,
	}
}
