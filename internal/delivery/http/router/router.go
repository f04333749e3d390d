package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"contrato-firma/internal/config"
	"contrato-firma/internal/delivery/http/handler"
)

type Router struct {
	app             *fiber.App
	config          *config.Config
	sessionHandler  *handler.SessionHandler
	identityHandler *handler.IdentityHandler
	healthHandler   *handler.HealthHandler
	logHandler      *handler.LogHandler
}

func NewRouter(
	cfg *config.Config,
	sessionHandler *handler.SessionHandler,
	identityHandler *handler.IdentityHandler,
	healthHandler *handler.HealthHandler,
	logHandler *handler.LogHandler,
) *Router {
	bodyLimit := fiber.DefaultBodyLimit
	if cfg.Upload.MaxFileSize > 0 {
		// room for the multipart envelope around the largest accepted file
		bodyLimit = int(cfg.Upload.MaxFileSize) + 1<<20
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: customErrorHandler,
		BodyLimit:    bodyLimit,
		// request values such as route params are kept by background submissions
		Immutable: true,
	})

	return &Router{
		app:             app,
		config:          cfg,
		sessionHandler:  sessionHandler,
		identityHandler: identityHandler,
		healthHandler:   healthHandler,
		logHandler:      logHandler,
	}
}

func (r *Router) Setup() *fiber.App {
	// Middleware
	r.app.Use(recover.New())
	r.app.Use(requestid.New())
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	if r.config.IsDevelopment() {
		r.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	// Health check route
	r.app.Get("/health", r.healthHandler.Health)

	// API v1 routes
	api := r.app.Group("/api/v1")
	{
		sessions := api.Group("/sessions")
		{
			sessions.Post("", r.sessionHandler.CreateSession)
			sessions.Get("/:id", r.sessionHandler.GetSession)
			sessions.Delete("/:id", r.sessionHandler.DeleteSession)

			// Document slot
			sessions.Put("/:id/file", r.sessionHandler.SelectFile)
			sessions.Delete("/:id/file", r.sessionHandler.ClearFile)

			// Signature slot
			sessions.Post("/:id/signature/events", r.sessionHandler.ApplyPointerEvents)
			sessions.Put("/:id/signature", r.sessionHandler.LoadSignature)
			sessions.Get("/:id/signature", r.sessionHandler.GetSignature)
			sessions.Delete("/:id/signature", r.sessionHandler.ClearSignature)

			// Submission
			sessions.Post("/:id/submit", r.sessionHandler.Submit)
			sessions.Get("/:id/outcome", r.sessionHandler.GetOutcome)
			sessions.Get("/:id/outcome/stream", r.sessionHandler.StreamOutcome)
		}

		identity := api.Group("/identity")
		{
			identity.Post("/extract", r.identityHandler.Extract)
		}

		// Log routes
		logs := api.Group("/logs")
		{
			logs.Get("", r.logHandler.GetLogs)
			logs.Get("/search", r.logHandler.SearchLogs)
		}
	}

	return r.app
}

func (r *Router) GetApp() *fiber.App {
	return r.app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	errCode := "INTERNAL_ERROR"
	switch code {
	case fiber.StatusNotFound:
		errCode = "NOT_FOUND"
	case fiber.StatusRequestEntityTooLarge:
		errCode = "VALIDATION_ERROR"
	case fiber.StatusBadRequest, fiber.StatusMethodNotAllowed:
		errCode = "BAD_REQUEST"
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
		"error": fiber.Map{
			"code":    errCode,
			"message": err.Error(),
		},
	})
}
