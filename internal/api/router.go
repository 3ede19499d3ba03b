package api

import (
	"pricesync/docs"
	"pricesync/internal/api/handlers"
	"pricesync/pkg/auth"
	"pricesync/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	syncHandler *handlers.SyncHandler,
	analysisHandler *handlers.AnalysisHandler,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// Swagger - importing docs registers the documentation via init()
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	recommendations := protected.Group("/recommendations")
	recommendations.Get("/pending", syncHandler.GetPending)
	recommendations.Get("/completed", syncHandler.GetCompleted)
	recommendations.Post("/:id/action", syncHandler.ApplyAction)

	batches := protected.Group("/batches")
	batches.Get("", syncHandler.GetBatches)
	batches.Post("/:id/select", syncHandler.SelectBatch)

	analysis := protected.Group("/analysis")
	analysis.Post("/run", analysisHandler.RunAnalysis)
	analysis.Post("/quick", analysisHandler.RunQuickCheck)
	analysis.Get("/status", analysisHandler.GetStatus)

	return app
}
