package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/vlkv/go-shop/internal/order/domain"
	"github.com/vlkv/go-shop/internal/order/service"
	"github.com/vlkv/go-shop/pkg/mylogger"
	"github.com/vlkv/go-shop/pkg/utils"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service  service.OrderService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewOrderHandler(service service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

func callerID(c *fiber.Ctx) (int64, bool) {
	userID, ok := c.Locals("userId").(int64)
	return userID, ok
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	input := new(createOrderRequest)

	if err := c.BodyParser(input); err != nil {
		h.logger.Warn(
			"failed to parse body in create",
			zap.Error(err),
		)

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	userID, ok := callerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	order, err := h.service.Create(c.UserContext(), userID, input.Items)
	if err != nil {
		mylogger.Warn(
			c.UserContext(),
			h.logger,
			"create order failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toOrderResponse(order))
}

func (h *OrderHandler) Update(c *fiber.Ctx) error {
	orderID, err := c.ParamsInt("id")
	if err != nil || orderID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	input := new(createOrderRequest)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	userID, ok := callerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	order, err := h.service.Update(c.UserContext(), userID, int64(orderID), input.Items)
	if err != nil {
		mylogger.Warn(
			c.UserContext(),
			h.logger,
			"update order failed",
			zap.Int("order_id", orderID),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(toOrderResponse(order))
}

func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	orderID, err := c.ParamsInt("id")
	if err != nil || orderID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	userID, ok := callerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	if err := h.service.Delete(c.UserContext(), userID, int64(orderID)); err != nil {
		mylogger.Warn(
			c.UserContext(),
			h.logger,
			"delete order failed",
			zap.Int("order_id", orderID),
			zap.Error(err),
		)

		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *OrderHandler) FindByID(c *fiber.Ctx) error {
	orderID, err := c.ParamsInt("id")
	if err != nil || orderID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}

	order, err := h.service.FindByID(c.UserContext(), int64(orderID))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(toOrderResponse(order))
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	orders, err := h.service.List(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"orders": toOrderListResponse(orders),
	})
}

func listParams(c *fiber.Ctx) service.ListParams {
	return service.ListParams{
		Limit:  int64(c.QueryInt("limit", 20)),
		Offset: int64(c.QueryInt("offset", 0)),
		Sort:   c.Query("sort"),
	}
}

func (h *OrderHandler) ListMy(c *fiber.Ctx) error {
	userID, ok := callerID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "userId parsing error"})
	}

	params := listParams(c)

	orders, total, err := h.service.FindByOwner(c.UserContext(), userID, params)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(pagedOrdersResponse{
		Orders: toOrderListResponse(orders),
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

func (h *OrderHandler) ListByStatus(c *fiber.Ctx) error {
	status, err := domain.ParseOrderStatus(c.Params("status"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	params := listParams(c)

	orders, total, err := h.service.FindByStatus(c.UserContext(), status, params)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(pagedOrdersResponse{
		Orders: toOrderListResponse(orders),
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// SendEvent queues a synthetic status event. Kept for manual smoke tests of
// the delivery path.
func (h *OrderHandler) SendEvent(c *fiber.Ctx) error {
	input := new(sendEventRequest)

	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	status, err := domain.ParseOrderStatus(input.Status)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.service.EmitTestEvent(c.UserContext(), input.OrderID, status); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued"})
}
