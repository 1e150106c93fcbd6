package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler converts handler errors into the standard JSON envelope.
// Client errors keep their status and message; anything else becomes a
// generic 500 with the detail logged, never echoed to the caller.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	} else {
		log.Printf("[HTTP] %s %s failed: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
