package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/okushnikov/structured-query/internal/controller/restapi/v1/response"
	"github.com/okushnikov/structured-query/internal/controller/restapi/v1/validate"
	"github.com/okushnikov/structured-query/internal/dto"
	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

type queryRequest struct {
	Prompt  string                   `json:"prompt"`
	Fields  []entity.FieldDefinition `json:"fields"`
	ImageID *uuid.UUID               `json:"image_id,omitempty"`
}

// @Summary  	Execute structured query
// @Description Answers the prompt as a JSON object matching the requested fields; identical queries are served from cache
// @Tags 		query
// @Accept 		json
// @Produce 	json
// @Security 	BearerAuth
// @Param 		request body queryRequest true "Query"
// @Success 	200 {object} response.Query
// @Failure 	400 {object} response.Error "Invalid prompt or fields"
// @Failure 	403 {object} response.Error "Image belongs to another user"
// @Failure 	404 {object} response.Error "Image not found"
// @Failure 	502 {object} response.Error "Model failure"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/query [post]
func (r *V1) executeQuery(ctx *fiber.Ctx) error {
	userID, ok := callerID(ctx)
	if !ok {
		return errorResponse(ctx, http.StatusUnauthorized, "unauthorized")
	}

	var req queryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid request body")
	}

	if len(req.Prompt) < validate.MinPromptLen || len(req.Prompt) > validate.MaxPromptLen {
		return errorResponse(ctx, http.StatusBadRequest, "invalid prompt length")
	}

	if len(req.Fields) == 0 || len(req.Fields) > validate.MaxFields {
		return errorResponse(ctx, http.StatusBadRequest,
			fmt.Sprintf("fields must contain between 1 and %d entries", validate.MaxFields))
	}

	for _, f := range req.Fields {
		if f.Name == "" {
			return errorResponse(ctx, http.StatusBadRequest, "field name is required")
		}
		if !f.Type.Valid() {
			return errorResponse(ctx, http.StatusBadRequest,
				fmt.Sprintf("invalid type for field %q. Allowed: text, number", f.Name))
		}
	}

	result, cached, err := r.query.Execute(ctx.UserContext(), userID, dto.Query{
		Prompt:  req.Prompt,
		Fields:  req.Fields,
		ImageID: req.ImageID,
	})
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrEncoding):
			return errorResponse(ctx, http.StatusBadRequest, "fields are not encodable")
		case errors.Is(err, errs.ErrRecordNotFound):
			return errorResponse(ctx, http.StatusNotFound, "image not found")
		case errors.Is(err, errs.ErrForbidden):
			return errorResponse(ctx, http.StatusForbidden, "image belongs to another user")
		case errors.Is(err, errs.ErrSchemaViolation), errors.Is(err, errs.ErrUpstream):
			r.logger.Error(err, "restapi - v1 - executeQuery")

			return errorResponse(ctx, http.StatusBadGateway, "model failed to produce a valid answer")
		}
		r.logger.Error(err, "restapi - v1 - executeQuery")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusOK).JSON(response.Query{Result: result, Cached: cached})
}
