// handlers/lobby_routes.go
package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"pong-arena/middleware"
	"pong-arena/services"

	"github.com/gofiber/fiber/v2"
)

const sseKeepAlive = 15 * time.Second

type queueRequest struct {
	Type string `json:"type"`
}

type challengeRequest struct {
	UserID   uint   `json:"userId"`
	GameType string `json:"gameType"`
}

// SetupLobbyRoutes exposes matchmaking and challenges over plain HTTP for
// clients that only hold an SSE stream.
func SetupLobbyRoutes(r fiber.Router, engine *services.Engine, hub *Hub) {
	r.Post("/queue", func(c *fiber.Ctx) error {
		var req queueRequest
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, services.Invalid("invalid request body"))
		}
		if err := engine.Enqueue(c.UserContext(), middleware.UserID(c), req.Type); err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"type": req.Type, "queued": true})
	})

	r.Delete("/queue", func(c *fiber.Ctx) error {
		t := c.Query("type")
		if err := engine.Dequeue(c.UserContext(), middleware.UserID(c), t); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"type": t, "queued": false})
	})

	r.Get("/queue/status", func(c *fiber.Ctx) error {
		t, err := engine.QueueStatus(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"type": t, "queued": t != ""})
	})

	r.Post("/challenges", func(c *fiber.Ctx) error {
		var req challengeRequest
		if err := c.BodyParser(&req); err != nil || req.UserID == 0 {
			return respondError(c, services.Invalid("invalid request body"))
		}
		if err := engine.Challenge(c.UserContext(), middleware.UserID(c), req.UserID, req.GameType); err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "pending"})
	})

	r.Post("/challenges/:challengerId/accept", func(c *fiber.Ctx) error {
		challenger, err := idParam(c, "challengerId")
		if err != nil {
			return respondError(c, err)
		}
		id, err := engine.AcceptChallenge(c.UserContext(), middleware.UserID(c), challenger)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"status": "accepted", "gameId": id})
	})

	r.Post("/challenges/:challengerId/decline", func(c *fiber.Ctx) error {
		challenger, err := idParam(c, "challengerId")
		if err != nil {
			return respondError(c, err)
		}
		if err := engine.DeclineChallenge(c.UserContext(), middleware.UserID(c), challenger); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Delete("/challenges", func(c *fiber.Ctx) error {
		if err := engine.CancelChallenge(c.UserContext(), middleware.UserID(c)); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/events", func(c *fiber.Ctx) error {
		return streamEvents(c, engine, hub)
	})
}

// streamEvents holds the player's events open as server-sent events. The
// stream counts as a connection for presence, like a socket does.
func streamEvents(c *fiber.Ctx, engine *services.Engine, hub *Hub) error {
	player := middleware.UserID(c)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	sub := hub.Subscribe(player, subscriberQueue)
	if err := engine.Connect(c.UserContext(), player); err != nil {
		hub.Unsubscribe(sub)
		return respondError(c, err)
	}

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer hub.Unsubscribe(sub)
		defer func() {
			if err := engine.Disconnect(context.Background(), player); err != nil {
				log.Printf("[SSE] ❌ disconnect player %d: %v", player, err)
			}
		}()

		ticker := time.NewTicker(sseKeepAlive)
		defer ticker.Stop()

		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}
		for {
			select {
			case ev := <-sub.C:
				payload, err := json.Marshal(ev.Payload)
				if err != nil {
					log.Printf("[SSE] encode %s: %v", ev.Type, err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			case <-ticker.C:
				w.WriteString(":\n\n")
			}
			// a failed flush means the client is gone
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}

func idParam(c *fiber.Ctx, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || n == 0 {
		return 0, services.Invalid("invalid %s", name)
	}
	return uint(n), nil
}
