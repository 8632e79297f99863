package image

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okushnikov/structured-query/internal/dto"
	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/internal/infrastructure"
	"github.com/okushnikov/structured-query/internal/repo"
	"github.com/okushnikov/structured-query/pkg/hasher"
	"github.com/okushnikov/structured-query/pkg/logger"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

// Attempts at resolving after losing an insert race. One retry is enough:
// rows are never deleted, so the winner's row is there to be read.
const _resolveAttempts = 2

type ImageUseCase struct {
	blobRepo  repo.BlobRepo
	imageRepo repo.ImageRepo
	prober    infrastructure.ImageProber

	logger logger.Interface
}

func New(
	blobRepo repo.BlobRepo,
	imageRepo repo.ImageRepo,
	prober infrastructure.ImageProber,
	l logger.Interface,
) *ImageUseCase {
	return &ImageUseCase{
		blobRepo:  blobRepo,
		imageRepo: imageRepo,
		prober:    prober,
		logger:    l,
	}
}

// ResolveOrStore uploads novel bytes and returns the existing row for
// bytes the owner already stored. The (owner_id, content_hash) unique
// constraint keeps concurrent identical uploads down to one stored copy:
// a loser deletes its freshly written blob and re-resolves as a reader.
func (uc *ImageUseCase) ResolveOrStore(ctx context.Context, ownerID uuid.UUID, upload dto.Upload) (*entity.Image, bool, error) {
	contentHash := hasher.HashBytes(upload.Data)

	for attempt := 0; attempt < _resolveAttempts; attempt++ {
		existing, err := uc.imageRepo.GetByOwnerAndHash(ctx, ownerID, contentHash)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, errs.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("ImageUseCase - ResolveOrStore - uc.imageRepo.GetByOwnerAndHash: %w", err)
		}

		width, height, err := uc.prober.Probe(upload.Data)
		if err != nil {
			return nil, false, fmt.Errorf("ImageUseCase - ResolveOrStore - uc.prober.Probe: %w", err)
		}

		image := &entity.Image{
			ID:          uuid.New(),
			OwnerID:     ownerID,
			ObjectKey:   fmt.Sprintf("images/%s", uuid.New()),
			ContentType: upload.ContentType,
			ContentHash: contentHash,
			Size:        int64(len(upload.Data)),
			Width:       width,
			Height:      height,
			CreatedAt:   time.Now(),
		}

		err = uc.blobRepo.UploadBytes(ctx, image.ObjectKey, upload.Data, upload.ContentType, image.Size)
		if err != nil {
			return nil, false, fmt.Errorf("ImageUseCase - ResolveOrStore - uc.blobRepo.UploadBytes: %w", err)
		}

		err = uc.imageRepo.Create(ctx, image)
		if err == nil {
			return image, true, nil
		}

		// lost the race or failed outright: the blob under our fresh key is
		// unreachable either way, remove it
		deleteErr := uc.blobRepo.Delete(ctx, image.ObjectKey)
		if deleteErr != nil {
			uc.logger.Error(deleteErr, "ImageUseCase - ResolveOrStore - uc.blobRepo.Delete")
		}

		if !errors.Is(err, errs.ErrAlreadyExists) {
			return nil, false, fmt.Errorf("ImageUseCase - ResolveOrStore - uc.imageRepo.Create: %w", err)
		}
	}

	return nil, false, fmt.Errorf("ImageUseCase - ResolveOrStore - attempts exhausted: %w", errs.ErrAlreadyExists)
}

// GetForOwner returns the image row after the mandatory ownership check:
// a row owned by someone else is ErrForbidden, never returned.
func (uc *ImageUseCase) GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (*entity.Image, error) {
	image, err := uc.imageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ImageUseCase - GetForOwner - uc.imageRepo.GetByID: %w", err)
	}

	if image.OwnerID != ownerID {
		return nil, fmt.Errorf("ImageUseCase - GetForOwner: %w", errs.ErrForbidden)
	}

	return image, nil
}

// GetBytes resolves the row (with ownership check) and fetches the blob.
func (uc *ImageUseCase) GetBytes(ctx context.Context, ownerID, id uuid.UUID) (*entity.Image, []byte, error) {
	image, err := uc.GetForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}

	data, err := uc.blobRepo.DownloadBytes(ctx, image.ObjectKey)
	if err != nil {
		return nil, nil, fmt.Errorf("ImageUseCase - GetBytes - uc.blobRepo.DownloadBytes: %w", err)
	}

	return image, data, nil
}
