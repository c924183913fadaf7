package handler

import (
	"slices"

	"github.com/gofiber/fiber/v2"

	"portfolioapi/internal/service"
	"portfolioapi/internal/storage"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Projects service.ProjectService
	Profile  service.ProfileService
	Store    storage.Storage
	Health   Pinger
	// Admin runs in order before every mutating route. Empty leaves them open.
	Admin []fiber.Handler
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.Health))
	app.Get("/healthz", LivenessProbe())

	app.Get("/v0/b/:bucket/o/*", MediaProxy(d.Store))

	guarded := func(h fiber.Handler) []fiber.Handler {
		return append(slices.Clone(d.Admin), h)
	}

	app.Get("/projects", ListProjects(d.Projects))
	app.Get("/projects/:id", GetProject(d.Projects))
	app.Get("/categories", ListCategories(d.Projects))
	app.Post("/projects/reorder", ReorderPreview(d.Projects))
	app.Get("/profile", GetProfile(d.Profile))

	app.Post("/projects", guarded(CreateProject(d.Projects))...)
	app.Patch("/projects/:id", guarded(UpdateProject(d.Projects))...)
	app.Delete("/projects/:id/images", guarded(DeleteProjectImage(d.Projects))...)
	app.Delete("/projects/:id", guarded(DeleteProject(d.Projects))...)
	app.Put("/profile", guarded(UpdateProfile(d.Profile))...)
}
