// handlers/errors.go
package handlers

import (
	"errors"
	"log"

	"pong-arena/protocol"
	"pong-arena/services"

	"github.com/gofiber/fiber/v2"
)

func respondError(c *fiber.Ctx, err error) error {
	var e *services.Error
	if errors.As(err, &e) {
		return c.Status(e.Status()).JSON(fiber.Map{
			"error":   e.Kind,
			"details": e.Message,
		})
	}
	log.Printf("[API] ❌ %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   services.KindInternal,
		"details": "internal error",
	})
}

// errorMessage is the socket rendition of respondError.
func errorMessage(err error, event string) protocol.ErrorMessage {
	var e *services.Error
	if errors.As(err, &e) {
		return protocol.ErrorMessage{Kind: string(e.Kind), Message: e.Message, Event: event}
	}
	log.Printf("[Gateway] ❌ %s: %v", event, err)
	return protocol.ErrorMessage{Kind: string(services.KindInternal), Message: "internal error", Event: event}
}
