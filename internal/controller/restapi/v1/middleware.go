package v1

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const _userIDKey = "userID"

// authRequired validates the bearer token and stores the caller's id in
// the request locals.
func (r *V1) authRequired(ctx *fiber.Ctx) error {
	header := ctx.Get(fiber.HeaderAuthorization)
	if header == "" {
		return errorResponse(ctx, http.StatusUnauthorized, "authorization header is required")
	}

	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return errorResponse(ctx, http.StatusUnauthorized, "invalid authorization header")
	}

	userID, err := r.auth.ParseToken(token)
	if err != nil {
		return errorResponse(ctx, http.StatusUnauthorized, "invalid token")
	}

	ctx.Locals(_userIDKey, userID)

	return ctx.Next()
}

func callerID(ctx *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := ctx.Locals(_userIDKey).(uuid.UUID)

	return id, ok
}
