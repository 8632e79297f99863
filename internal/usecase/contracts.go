package usecase

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/okushnikov/structured-query/internal/dto"
	"github.com/okushnikov/structured-query/internal/entity"
)

type (
	AuthUseCase interface {
		Register(ctx context.Context, username, password string) (*entity.User, error)
		Login(ctx context.Context, username, password string) (string, error)
		ParseToken(token string) (uuid.UUID, error)
	}

	// ImageUseCase owns per-user content-addressed image storage.
	ImageUseCase interface {
		// ResolveOrStore deduplicates by content hash: re-uploading bytes a
		// user already stored returns the existing row with isNew == false
		// and writes nothing to the blob store.
		ResolveOrStore(ctx context.Context, ownerID uuid.UUID, upload dto.Upload) (image *entity.Image, isNew bool, err error)
		GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (*entity.Image, error)
		GetBytes(ctx context.Context, ownerID, id uuid.UUID) (*entity.Image, []byte, error)
	}

	// QueryUseCase executes a structured query against the response cache
	// and, on miss, the external model.
	QueryUseCase interface {
		Execute(ctx context.Context, userID uuid.UUID, query dto.Query) (result json.RawMessage, cached bool, err error)
	}

	// CostEventsUseCase exposes the cost outbox to the relay worker.
	CostEventsUseCase interface {
		GetPendingEvents(ctx context.Context, maxRetries, limit int) ([]*entity.CostEvent, error)
		MarkAsProcessingBatch(ctx context.Context, events []*entity.CostEvent) error
		MarkAsProcessedBatch(ctx context.Context, events []*entity.CostEvent) error
		IncrementRetryCountBatch(ctx context.Context, events []*entity.CostEvent) error
		MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error
		Cleanup(ctx context.Context) error
	}

	// UsageUseCase aggregates consumed cost events per user.
	UsageUseCase interface {
		Record(ctx context.Context, payload entity.CostEventPayload) error
		GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.ModelUsage, error)
	}
)
