// handlers/game.go
package handlers

import (
	"pong-arena/middleware"
	"pong-arena/services"

	"github.com/gofiber/fiber/v2"
)

type endSessionRequest struct {
	WinnerID *uint `json:"winnerId"`
}

// SetupGameRoutes exposes read access to live sessions and the operator
// force-end, which needs the admin role.
func SetupGameRoutes(r fiber.Router, engine *services.Engine) {
	r.Get("/sessions/:id", func(c *fiber.Ctx) error {
		info, err := engine.Session(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(info)
	})

	r.Post("/sessions/:id/end", middleware.RequireRole("admin"), func(c *fiber.Ctx) error {
		var req endSessionRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return respondError(c, services.Invalid("invalid request body"))
			}
		}
		if err := engine.EndSession(c.UserContext(), c.Params("id"), req.WinnerID); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// SetupStatusRoutes needs only the gateway token, no player context.
func SetupStatusRoutes(app *fiber.App, engine *services.Engine, hub *Hub) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/stats", func(c *fiber.Ctx) error {
		st, err := engine.Stats(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"engine":           st,
			"hubDroppedEvents": hub.Dropped(),
		})
	})
}
