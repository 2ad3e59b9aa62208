package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/facegate/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/facegate/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/facegate/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
)

type Dependencies struct {
	IdentityRepo   repository.IdentityRepositoryInterface
	PermissionRepo repository.PermissionRepositoryInterface
	AccessRepo     repository.AccessRepositoryInterface
	Enrollment     *service.EnrollmentService
	Access         *service.AccessService
	APIKey         string
	ReadyCheck     handler.ReadinessChecker
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Facegate API",
		BodyLimit:    32 * 1024 * 1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints (no auth required)
	var ready handler.ReadinessChecker
	if r.deps != nil {
		ready = r.deps.ReadyCheck
	}
	healthHandler := handler.NewHealthHandler(ready)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// API v1 group with authentication
	v1 := r.app.Group("/v1")

	// Only configure authenticated routes if dependencies were provided
	if r.deps != nil {
		v1.Use(middleware.Auth(r.deps.APIKey))

		identityHandler := handler.NewIdentityHandler(
			r.deps.Enrollment,
			r.deps.IdentityRepo,
			r.deps.PermissionRepo,
			r.logger,
		)
		accessHandler := handler.NewAccessHandler(r.deps.Access, r.deps.AccessRepo, r.logger)

		// Identity routes
		v1.Post("/identities", identityHandler.Enroll)
		v1.Get("/identities/by-name/:name", identityHandler.GetByName)
		v1.Get("/identities/:id", identityHandler.Get)
		v1.Patch("/identities/:id", identityHandler.Update)
		v1.Delete("/identities/:id", identityHandler.Delete)

		// Permission routes
		v1.Get("/identities/:id/permissions", identityHandler.ListPermissions)
		v1.Post("/identities/:id/permissions", identityHandler.GrantPermission)
		v1.Delete("/identities/:id/permissions/:level", identityHandler.RevokePermission)
		v1.Delete("/identities/:id/permissions", identityHandler.RevokeAllPermissions)

		// Access routes
		v1.Post("/access", accessHandler.Decide)
		v1.Get("/access/requests/:id", accessHandler.GetRequest)
		v1.Get("/access/logs/:id", accessHandler.GetLog)
		v1.Get("/identities/:id/access-requests", accessHandler.ListRequests)
		v1.Get("/identities/:id/access-logs", accessHandler.ListLogs)
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown(ctx context.Context) error {
	return r.app.ShutdownWithContext(ctx)
}
