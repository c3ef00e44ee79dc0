package handler

import (
	"log"

	"go-mini-commerce/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// respondError maps the error taxonomy to a status code and a structured
// body. Internal kinds are logged with their cause; clients only see detail.
func respondError(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		log.Printf("%s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"error": apperr.Detail(err)})
}

// parseUUID parses a path parameter as UUID
func parseUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}
