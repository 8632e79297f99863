package restapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"github.com/okushnikov/structured-query/config"
	v1 "github.com/okushnikov/structured-query/internal/controller/restapi/v1"
	"github.com/okushnikov/structured-query/internal/usecase"
	"github.com/okushnikov/structured-query/pkg/logger"
)

// @title Structured Query
// @version 1.0.0
// @host localhost:8080
// @BasePath /v1
func NewRouter(
	app *fiber.App,
	cfg *config.Config,
	auth usecase.AuthUseCase,
	img usecase.ImageUseCase,
	query usecase.QueryUseCase,
	usage usecase.UsageUseCase,
	l logger.Interface,
) {
	// Swagger
	if cfg.Swagger.Enabled {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}

	// Routers
	apiV1Group := app.Group("/v1")
	{
		v1.NewRoutes(apiV1Group, auth, img, query, usage, l)
	}
}
