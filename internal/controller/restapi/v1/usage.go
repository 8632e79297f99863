package v1

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/okushnikov/structured-query/internal/controller/restapi/v1/response"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

// @Summary  	Get model usage
// @Description Returns the caller's aggregated model call counters
// @Tags 		usage
// @Produce 	json
// @Security 	BearerAuth
// @Success 	200 {object} response.Usage
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/usage [get]
func (r *V1) getUsage(ctx *fiber.Ctx) error {
	userID, ok := callerID(ctx)
	if !ok {
		return errorResponse(ctx, http.StatusUnauthorized, "unauthorized")
	}

	usage, err := r.usage.GetByUserID(ctx.UserContext(), userID)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			// no relayed events yet
			return ctx.Status(http.StatusOK).JSON(response.Usage{})
		}
		r.logger.Error(err, "restapi - v1 - getUsage")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	resp := response.Usage{
		Calls:       usage.Calls,
		FailedCalls: usage.FailedCalls,
		UpdatedAt:   usage.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	return ctx.Status(http.StatusOK).JSON(resp)
}
