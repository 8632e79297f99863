package v1

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/okushnikov/structured-query/internal/controller/restapi/v1/response"
	"github.com/okushnikov/structured-query/internal/controller/restapi/v1/validate"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// @Summary  	Register user
// @Description Creates a user account
// @Tags 		auth
// @Accept 		json
// @Produce 	json
// @Param 		request body credentialsRequest true "Credentials"
// @Success 	201 {object} response.Register
// @Failure 	400 {object} response.Error "Invalid credentials"
// @Failure 	409 {object} response.Error "Username taken"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/auth/register [post]
func (r *V1) register(ctx *fiber.Ctx) error {
	var req credentialsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid request body")
	}

	if len(req.Username) < validate.MinUsernameLen || len(req.Username) > validate.MaxUsernameLen {
		return errorResponse(ctx, http.StatusBadRequest, "invalid username length")
	}

	if len(req.Password) < validate.MinPasswordLen || len(req.Password) > validate.MaxPasswordLen {
		return errorResponse(ctx, http.StatusBadRequest, "invalid password length")
	}

	user, err := r.auth.Register(ctx.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return errorResponse(ctx, http.StatusConflict, "username is already taken")
		}
		r.logger.Error(err, "restapi - v1 - register")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	resp := response.Register{
		UserID:   user.ID.String(),
		Username: user.Username,
	}

	return ctx.Status(http.StatusCreated).JSON(resp)
}

// @Summary  	Login
// @Description Exchanges credentials for a bearer token
// @Tags 		auth
// @Accept 		json
// @Produce 	json
// @Param 		request body credentialsRequest true "Credentials"
// @Success 	200 {object} response.Login
// @Failure 	400 {object} response.Error "Invalid body"
// @Failure 	401 {object} response.Error "Wrong credentials"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/auth/login [post]
func (r *V1) login(ctx *fiber.Ctx) error {
	var req credentialsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid request body")
	}

	token, err := r.auth.Login(ctx.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) || errors.Is(err, errs.ErrForbidden) {
			return errorResponse(ctx, http.StatusUnauthorized, "wrong username or password")
		}
		r.logger.Error(err, "restapi - v1 - login")

		return errorResponse(ctx, http.StatusInternalServerError, "storage problems")
	}

	return ctx.Status(http.StatusOK).JSON(response.Login{Token: token})
}
