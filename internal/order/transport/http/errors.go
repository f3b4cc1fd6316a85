package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	catalogrepo "github.com/vlkv/go-shop/internal/catalog/repository"
	"github.com/vlkv/go-shop/internal/order/repository"
	"github.com/vlkv/go-shop/internal/order/service"
)

// statusFromError maps domain failures onto HTTP codes. Anything not
// recognized is treated as an internal error.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, catalogrepo.ErrProductNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrNotOrderOwner):
		return fiber.StatusForbidden
	case errors.Is(err, catalogrepo.ErrInsufficientStock),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidQuantity):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	code := statusFromError(err)

	body := fiber.Map{"error": err.Error()}
	if code == fiber.StatusInternalServerError {
		body = fiber.Map{"error": "internal error"}
	}

	return c.Status(code).JSON(body)
}
