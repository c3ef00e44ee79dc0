package middleware

import (
	"strings"

	"go-mini-commerce/internal/repository"
	"go-mini-commerce/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth validates the JWT and sets customer info in context
func RequireAuth(customerRepo repository.CustomerRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get Authorization header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		claims, err := jwt.ValidateToken(parts[1])
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		// The account must still exist; tokens outlive deletions otherwise.
		customer, err := customerRepo.FindByID(claims.CustomerID)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Customer not found"})
		}

		c.Locals("customer_id", customer.ID.String())
		c.Locals("customer_email", customer.Email)
		c.Locals("customer_name", customer.FullName)
		c.Locals("is_admin", customer.IsAdmin)

		return c.Next()
	}
}

// RequireAdmin gates administrative actions such as order cancellation
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isAdmin, ok := c.Locals("is_admin").(bool)
		if !ok || !isAdmin {
			return c.Status(403).JSON(fiber.Map{"error": "Forbidden: requires an admin account"})
		}
		return c.Next()
	}
}
