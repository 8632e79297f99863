// Package cost exposes the cost outbox to the relay worker.
package cost

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/internal/repo"
	"github.com/okushnikov/structured-query/pkg/logger"
)

type CostEventsUseCase struct {
	costRepo repo.CostOutboxRepo

	logger logger.Interface
}

func New(costRepo repo.CostOutboxRepo, l logger.Interface) *CostEventsUseCase {
	return &CostEventsUseCase{costRepo: costRepo, logger: l}
}

func (uc *CostEventsUseCase) GetPendingEvents(ctx context.Context, maxRetries, limit int) ([]*entity.CostEvent, error) {
	events, err := uc.costRepo.GetPendingEvents(ctx, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("CostEventsUseCase - GetPendingEvents - uc.costRepo.GetPendingEvents: %w", err)
	}

	return events, nil
}

func (uc *CostEventsUseCase) MarkAsProcessingBatch(ctx context.Context, events []*entity.CostEvent) error {
	err := uc.costRepo.MarkAsProcessingBatch(ctx, eventIDs(events))
	if err != nil {
		return fmt.Errorf("CostEventsUseCase - MarkAsProcessingBatch - uc.costRepo.MarkAsProcessingBatch: %w", err)
	}

	return nil
}

func (uc *CostEventsUseCase) MarkAsProcessedBatch(ctx context.Context, events []*entity.CostEvent) error {
	err := uc.costRepo.MarkAsProcessedBatch(ctx, eventIDs(events))
	if err != nil {
		return fmt.Errorf("CostEventsUseCase - MarkAsProcessedBatch - uc.costRepo.MarkAsProcessedBatch: %w", err)
	}

	return nil
}

func (uc *CostEventsUseCase) IncrementRetryCountBatch(ctx context.Context, events []*entity.CostEvent) error {
	err := uc.costRepo.IncrementRetryCountBatch(ctx, eventIDs(events))
	if err != nil {
		return fmt.Errorf("CostEventsUseCase - IncrementRetryCountBatch - uc.costRepo.IncrementRetryCountBatch: %w", err)
	}

	return nil
}

func (uc *CostEventsUseCase) MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error {
	err := uc.costRepo.MarkMaxRetriesAsFailed(ctx, maxRetries)
	if err != nil {
		return fmt.Errorf("CostEventsUseCase - MarkMaxRetriesAsFailed - uc.costRepo.MarkMaxRetriesAsFailed: %w", err)
	}

	return nil
}

func (uc *CostEventsUseCase) Cleanup(ctx context.Context) error {
	count, err := uc.costRepo.DeleteOldProcessedAndFailed(ctx)
	if err != nil {
		return fmt.Errorf("CostEventsUseCase - Cleanup - uc.costRepo.DeleteOldProcessedAndFailed: %w", err)
	}

	if count > 0 {
		uc.logger.Info("deleted relayed cost events, count = %d", count)
	}

	return nil
}

func eventIDs(events []*entity.CostEvent) uuid.UUIDs {
	ids := make(uuid.UUIDs, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.ID)
	}

	return ids
}
