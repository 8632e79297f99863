// Package usage aggregates consumed cost events into per-user spend
// counters.
package usage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/internal/repo"
	"github.com/okushnikov/structured-query/pkg/logger"
)

type UsageUseCase struct {
	usageRepo repo.UsageRepo

	logger logger.Interface
}

func New(usageRepo repo.UsageRepo, l logger.Interface) *UsageUseCase {
	return &UsageUseCase{usageRepo: usageRepo, logger: l}
}

func (uc *UsageUseCase) Record(ctx context.Context, payload entity.CostEventPayload) error {
	var calls, failed int64 = 1, 0
	if !payload.Succeeded {
		failed = 1
	}

	err := uc.usageRepo.Add(ctx, payload.UserID, calls, failed)
	if err != nil {
		return fmt.Errorf("UsageUseCase - Record - uc.usageRepo.Add: %w", err)
	}

	return nil
}

func (uc *UsageUseCase) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.ModelUsage, error) {
	usage, err := uc.usageRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("UsageUseCase - GetByUserID - uc.usageRepo.GetByUserID: %w", err)
	}

	return usage, nil
}
