package routes

import (
	"github.com/arnold/esg-pledges-api/internal/handlers"
	"github.com/arnold/esg-pledges-api/internal/middleware"
	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/arnold/esg-pledges-api/internal/realtime"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Pledges       map[models.Category]*handlers.PledgeHandler
	Rankings      *handlers.RankingHandler
	Notifications *handlers.NotificationHandler
	Hub           *realtime.Hub
	Store         handlers.Pinger
	// UploadsDir is served under /uploads when images live on local disk.
	UploadsDir string
}

func Setup(app *fiber.App, mw *middleware.Auth, h Handlers) {
	app.Get("/", handlers.Root)
	if h.UploadsDir != "" {
		app.Static("/uploads", h.UploadsDir)
	}

	api := app.Group("/api")
	api.Get("/health", handlers.Health(h.Store))

	auth := api.Group("/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/logout", h.Auth.Logout)
	auth.Get("/me", mw.Protected(), h.Auth.Me)

	for _, category := range models.Categories {
		pledgeRoutes(api.Group("/"+category.RoutePrefix()), mw, h.Pledges[category])
	}

	api.Get("/rankings", h.Rankings.Get)

	// Notifications
	notifications := api.Group("/notifications", mw.Protected())
	notifications.Get("/", h.Notifications.List)
	notifications.Put("/:id/read", h.Notifications.MarkRead)
	notifications.Post("/read-all", h.Notifications.MarkAllRead)

	// Device token for push notifications
	api.Post("/device-token", mw.Protected(), h.Notifications.RegisterDeviceToken)

	// WebSocket for live leaderboard updates
	app.Use("/ws", realtime.Upgrade())
	app.Get("/ws/rankings", h.Hub.Handler())
}

func pledgeRoutes(r fiber.Router, mw *middleware.Auth, h *handlers.PledgeHandler) {
	admin := []fiber.Handler{mw.Protected(), mw.AdminOnly()}

	r.Get("/pledges", mw.SoftAuth(), h.List)
	r.Get("/pledges/:id", mw.SoftAuth(), h.Get)
	r.Post("/", append(admin, h.Create)...)
	r.Post("/pledges", append(admin, h.Create)...)
	r.Put("/pledges/:id", append(admin, h.Update)...)
	r.Delete("/pledges/:id", append(admin, h.Delete)...)

	r.Post("/pledges/:id/complete", mw.Protected(), h.Complete)
	r.Get("/user/completed", mw.Protected(), h.Completed)

	r.Get("/awards", h.ListAwards)
	r.Get("/awards/:id", h.GetAward)
	r.Post("/awards", append(admin, h.CreateAward)...)
	r.Put("/awards/:id", append(admin, h.UpdateAward)...)
	r.Delete("/awards/:id", append(admin, h.DeleteAward)...)
}
