package v1

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/okushnikov/structured-query/internal/controller/restapi/v1/response"
	"github.com/okushnikov/structured-query/internal/controller/restapi/v1/validate"
	"github.com/okushnikov/structured-query/internal/dto"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

// @Summary  	Upload image
// @Description Stores the image bytes content-addressed; re-uploading identical bytes returns the existing record
// @Tags 		images
// @Accept 		mpfd
// @Produce 	json
// @Security 	BearerAuth
// @Param 		file formData file true "Image file(jpg, png, gif, webp)"
// @Success 	201 {object} response.Image "Stored"
// @Success 	200 {object} response.Image "Deduplicated"
// @Failure 	400 {object} response.Error "Empty file or undecodable image"
// @Failure 	413 {object} response.Error "File too large"
// @Failure 	415 {object} response.Error "Unsupported format"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/images [post]
func (r *V1) uploadImage(ctx *fiber.Ctx) error {
	userID, ok := callerID(ctx)
	if !ok {
		return errorResponse(ctx, http.StatusUnauthorized, "unauthorized")
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "file is required")
	}

	if file.Size == 0 {
		return errorResponse(ctx, http.StatusBadRequest, "file is empty")
	}

	if file.Size > validate.MaxFileSize {
		return errorResponse(ctx, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file size cant be more than %d bytes", validate.MaxFileSize))
	}

	contentType := file.Header.Get("Content-Type")
	if !validate.AllowedContentTypes[contentType] {
		return errorResponse(ctx, http.StatusUnsupportedMediaType, "unsupported file type. Allowed: jpeg, png, gif, webp")
	}

	fileReader, err := file.Open()
	if err != nil {
		r.logger.Error(err, "restapi - v1 - uploadImage")

		return errorResponse(ctx, http.StatusInternalServerError, "problems with opening the file")
	}
	defer fileReader.Close()

	data, err := io.ReadAll(fileReader)
	if err != nil {
		r.logger.Error(err, "restapi - v1 - uploadImage")

		return errorResponse(ctx, http.StatusInternalServerError, "problems with reading the file")
	}

	image, isNew, err := r.img.ResolveOrStore(ctx.UserContext(), userID, dto.Upload{
		Data:        data,
		ContentType: contentType,
	})
	if err != nil {
		if errors.Is(err, errs.ErrEncoding) {
			return errorResponse(ctx, http.StatusBadRequest, "file is not a decodable image")
		}
		r.logger.Error(err, "restapi - v1 - uploadImage")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	resp := response.Image{
		ImageID:      image.ID.String(),
		ContentType:  image.ContentType,
		ContentHash:  image.ContentHash,
		Size:         image.Size,
		Width:        image.Width,
		Height:       image.Height,
		Deduplicated: !isNew,
		CreatedAt:    image.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	status := http.StatusCreated
	if !isNew {
		status = http.StatusOK
	}

	return ctx.Status(status).JSON(resp)
}

// @Summary 	Download image
// @Description Returns the stored bytes of an image owned by the caller
// @Tags 		images
// @Produce 	image/jpeg,image/png,image/gif,image/webp
// @Security 	BearerAuth
// @Param 		id path string true "Image ID(uuid)"
// @Success 	200 {file} 	binary
// @Failure 	400 {object} response.Error "Invalid ID"
// @Failure 	403 {object} response.Error "Not the owner"
// @Failure 	404 {object} response.Error "Image not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/images/{id} [get]
func (r *V1) downloadImage(ctx *fiber.Ctx) error {
	userID, ok := callerID(ctx)
	if !ok {
		return errorResponse(ctx, http.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid id")
	}

	image, data, err := r.img.GetBytes(ctx.UserContext(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrRecordNotFound):
			return errorResponse(ctx, http.StatusNotFound, "image not found")
		case errors.Is(err, errs.ErrForbidden):
			return errorResponse(ctx, http.StatusForbidden, "image belongs to another user")
		}
		r.logger.Error(err, "restapi - v1 - downloadImage")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	ctx.Set(fiber.HeaderContentType, image.ContentType)

	return ctx.Status(http.StatusOK).Send(data)
}
