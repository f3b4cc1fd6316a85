package http

import (
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *OrderHandler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", NewIdentityMiddleware())

	orders := api.Group("/orders")
	orders.Post("", h.Create)
	orders.Get("", h.List)
	orders.Get("/my", h.ListMy)
	orders.Get("/status/:status", h.ListByStatus)
	orders.Get("/:id", h.FindByID)
	orders.Put("/:id", h.Update)
	orders.Delete("/:id", h.Delete)

	api.Post("/events/send", h.SendEvent)
}
