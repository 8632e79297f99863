package v1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/okushnikov/structured-query/internal/usecase"
	"github.com/okushnikov/structured-query/pkg/logger"
)

func NewRoutes(
	apiV1Group fiber.Router,
	auth usecase.AuthUseCase,
	img usecase.ImageUseCase,
	query usecase.QueryUseCase,
	usage usecase.UsageUseCase,
	l logger.Interface,
) {
	r := &V1{auth: auth, img: img, query: query, usage: usage, logger: l}

	{
		// Public
		apiV1Group.Post("/auth/register", r.register)
		apiV1Group.Post("/auth/login", r.login)

		// Protected
		authorized := apiV1Group.Group("", r.authRequired)
		authorized.Post("/images", r.uploadImage)
		authorized.Get("/images/:id", r.downloadImage)
		authorized.Post("/query", r.executeQuery)
		authorized.Get("/usage", r.getUsage)
	}
}
