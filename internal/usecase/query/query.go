package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okushnikov/structured-query/internal/cachekey"
	"github.com/okushnikov/structured-query/internal/dto"
	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/internal/infrastructure"
	"github.com/okushnikov/structured-query/internal/repo"
	"github.com/okushnikov/structured-query/internal/usecase"
	"github.com/okushnikov/structured-query/pkg/logger"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

// One extra model call when the first response violates the schema.
const _schemaRetries = 1

type QueryUseCase struct {
	images     usecase.ImageUseCase
	cacheRepo  repo.CacheRepo
	costRepo   repo.CostOutboxRepo
	transactor repo.Transactor
	invoker    infrastructure.ModelInvoker

	logger logger.Interface
}

func New(
	images usecase.ImageUseCase,
	cacheRepo repo.CacheRepo,
	costRepo repo.CostOutboxRepo,
	transactor repo.Transactor,
	invoker infrastructure.ModelInvoker,
	l logger.Interface,
) *QueryUseCase {
	return &QueryUseCase{
		images:     images,
		cacheRepo:  cacheRepo,
		costRepo:   costRepo,
		transactor: transactor,
		invoker:    invoker,
		logger:     l,
	}
}

// Execute runs one structured query:
//
//	resolve image -> build cache key -> cache lookup -> [hit: return] /
//	[miss: invoke model -> validate -> insert-if-absent -> return]
//
// Image resolution failures abort before any model spend. Model failures
// and schema violations are never cached. Two racing executions of the
// same miss may both reach the model (duplicate spend is accepted); the
// cache still ends up with exactly one row.
func (uc *QueryUseCase) Execute(ctx context.Context, userID uuid.UUID, query dto.Query) (json.RawMessage, bool, error) {
	// 1. resolve the image reference, ownership check included; the
	// content hash stored at upload time is reused, not recomputed
	var imageHash string
	var imageInput *infrastructure.ImageInput

	if query.ImageID != nil {
		image, data, err := uc.images.GetBytes(ctx, userID, *query.ImageID)
		if err != nil {
			return nil, false, fmt.Errorf("QueryUseCase - Execute - uc.images.GetBytes: %w", err)
		}

		imageHash = image.ContentHash
		imageInput = &infrastructure.ImageInput{Data: data, ContentType: image.ContentType}
	}

	// 2. cache key
	key, err := cachekey.Build(query.Prompt, query.Fields, imageHash)
	if err != nil {
		return nil, false, fmt.Errorf("QueryUseCase - Execute - cachekey.Build: %w", err)
	}

	// 3. lookup
	entry, err := uc.cacheRepo.Lookup(ctx, key)
	if err == nil {
		return entry.Result, true, nil
	}
	if !errors.Is(err, errs.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("QueryUseCase - Execute - uc.cacheRepo.Lookup: %w", err)
	}

	// 4. miss: invoke the model with a strict output schema
	descriptor, err := buildSchemaDescriptor(query.Fields)
	if err != nil {
		return nil, false, fmt.Errorf("QueryUseCase - Execute - buildSchemaDescriptor: %w", err)
	}

	result, costEvent, err := uc.invokeValidated(ctx, userID, query, descriptor, imageInput)
	if err != nil {
		return nil, false, err
	}

	// 6. persist the row and its spend event together; a racing run may
	// have inserted the row first, which is fine - the stored row wins
	// and our result is discarded on the next lookup
	schemaJSON, err := json.Marshal(query.Fields)
	if err != nil {
		return nil, false, fmt.Errorf("QueryUseCase - Execute - json.Marshal(fields): %w", err)
	}

	newEntry := &entity.CacheEntry{
		CacheKey:   key,
		Prompt:     query.Prompt,
		SchemaJSON: string(schemaJSON),
		Result:     result,
		CreatedAt:  time.Now(),
	}
	if imageHash != "" {
		newEntry.ImageHash = &imageHash
	}

	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		stored, err := uc.cacheRepo.InsertIfAbsent(ctx, newEntry)
		if err != nil {
			return fmt.Errorf("uc.cacheRepo.InsertIfAbsent: %w", err)
		}
		if !stored {
			uc.logger.Debug("query cache insert lost a race, key=%s", key)
		}

		if err := uc.costRepo.Create(ctx, costEvent); err != nil {
			return fmt.Errorf("uc.costRepo.Create: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("QueryUseCase - Execute - uc.transactor.WithinTransaction: %w", err)
	}

	return result, false, nil
}

// invokeValidated calls the model, validates the output, and allows one
// bounded retry on a schema violation. Failed attempts are recorded to
// the cost outbox immediately; the successful attempt's event is
// returned so the caller commits it together with the cache row.
func (uc *QueryUseCase) invokeValidated(
	ctx context.Context,
	userID uuid.UUID,
	query dto.Query,
	descriptor []byte,
	imageInput *infrastructure.ImageInput,
) (json.RawMessage, *entity.CostEvent, error) {
	var lastErr error

	for attempt := 0; attempt <= _schemaRetries; attempt++ {
		raw, err := uc.invoker.Invoke(ctx, query.Prompt, descriptor, imageInput)
		if err != nil {
			uc.recordCost(ctx, uc.costEvent(userID, query, imageInput != nil, false))

			return nil, nil, fmt.Errorf("QueryUseCase - invokeValidated - uc.invoker.Invoke: %w: %w", errs.ErrUpstream, err)
		}

		if err := validateResult(query.Fields, raw); err != nil {
			uc.logger.Warn("model output rejected, attempt=%d, err=%v", attempt, err)
			uc.recordCost(ctx, uc.costEvent(userID, query, imageInput != nil, true))
			lastErr = err

			continue
		}

		return raw, uc.costEvent(userID, query, imageInput != nil, true), nil
	}

	return nil, nil, fmt.Errorf("QueryUseCase - invokeValidated: %w", lastErr)
}

func (uc *QueryUseCase) costEvent(userID uuid.UUID, query dto.Query, withImage, succeeded bool) *entity.CostEvent {
	payload, err := json.Marshal(entity.CostEventPayload{
		UserID:     userID,
		Model:      uc.invoker.Model(),
		PromptLen:  len(query.Prompt),
		WithImage:  withImage,
		Succeeded:  succeeded,
		OccurredAt: time.Now(),
	})
	if err != nil {
		// CostEventPayload always marshals; keep the event with an empty
		// payload rather than losing the spend record
		uc.logger.Error(err, "QueryUseCase - costEvent - json.Marshal")
	}

	return &entity.CostEvent{
		ID:        uuid.New(),
		UserID:    userID,
		Payload:   payload,
		Status:    entity.Pending,
		CreatedAt: time.Now(),
	}
}

// recordCost is the best-effort path for failed attempts: a failed audit
// write must not mask the query error itself.
func (uc *QueryUseCase) recordCost(ctx context.Context, event *entity.CostEvent) {
	if err := uc.costRepo.Create(ctx, event); err != nil {
		uc.logger.Error(err, "QueryUseCase - recordCost - uc.costRepo.Create")
	}
}
