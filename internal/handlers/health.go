package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

func Root(c *fiber.Ctx) error {
	return c.SendString("ESG Pledge API is running")
}

// Health reports whether the store is reachable.
func Health(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	}
}
