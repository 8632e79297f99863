package repo

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/okushnikov/structured-query/internal/entity"
)

type (
	// BlobRepo moves raw bytes in and out of the object store. It knows
	// nothing about deduplication; that is the image table's job.
	BlobRepo interface {
		Upload(ctx context.Context, key string, data io.Reader, contentType string, size int64) error
		UploadBytes(ctx context.Context, key string, data []byte, contentType string, size int64) error
		Download(ctx context.Context, key string) (io.ReadCloser, error)
		DownloadBytes(ctx context.Context, key string) ([]byte, error)
		Delete(ctx context.Context, key string) error
	}

	// ImageRepo persists image rows under a (owner_id, content_hash)
	// uniqueness constraint. Create returns errs.ErrAlreadyExists when an
	// insert loses a race on that constraint.
	ImageRepo interface {
		Create(ctx context.Context, image *entity.Image) error
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Image, error)
		GetByOwnerAndHash(ctx context.Context, ownerID uuid.UUID, contentHash string) (*entity.Image, error)
	}

	// CacheRepo persists model responses keyed by cache_key unique.
	// InsertIfAbsent is insert-or-ignore: it reports whether this call
	// stored the row, and an existing row is never overwritten.
	CacheRepo interface {
		Lookup(ctx context.Context, cacheKey string) (*entity.CacheEntry, error)
		InsertIfAbsent(ctx context.Context, entry *entity.CacheEntry) (stored bool, err error)
	}

	UserRepo interface {
		Create(ctx context.Context, user *entity.User) error
		GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
		GetByUsername(ctx context.Context, username string) (*entity.User, error)
	}

	// CostOutboxRepo is the transactional outbox for model spend events.
	CostOutboxRepo interface {
		Create(ctx context.Context, event *entity.CostEvent) error
		GetPendingEvents(ctx context.Context, maxRetries, limit int) ([]*entity.CostEvent, error)
		MarkAsProcessingBatch(ctx context.Context, ids uuid.UUIDs) error
		MarkAsProcessedBatch(ctx context.Context, ids uuid.UUIDs) error
		IncrementRetryCountBatch(ctx context.Context, ids uuid.UUIDs) error
		MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error
		DeleteOldProcessedAndFailed(ctx context.Context) (int64, error)
	}

	// UsageRepo maintains per-user model spend aggregates.
	UsageRepo interface {
		Add(ctx context.Context, userID uuid.UUID, calls, failedCalls int64) error
		GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.ModelUsage, error)
	}

	Transactor interface {
		WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error
	}
)
