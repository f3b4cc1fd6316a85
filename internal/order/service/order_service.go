package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	catalogrepo "github.com/vlkv/go-shop/internal/catalog/repository"
	catalogservice "github.com/vlkv/go-shop/internal/catalog/service"
	"github.com/vlkv/go-shop/internal/order/domain"
	"github.com/vlkv/go-shop/internal/order/repository"
	"github.com/vlkv/go-shop/pkg/mylogger"
	outboxdomain "github.com/vlkv/go-shop/pkg/outbox/domain"
	"github.com/vlkv/go-shop/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OrderItemRequest is what a caller asks for. Name and price are never
// accepted from the outside; they are snapshotted from the catalog at
// reservation time.
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

type ListParams struct {
	Limit  int64
	Offset int64
	Sort   string
}

type OrderService interface {
	Create(ctx context.Context, ownerID int64, items []OrderItemRequest) (*domain.Order, error)
	Update(ctx context.Context, ownerID, orderID int64, items []OrderItemRequest) (*domain.Order, error)
	Delete(ctx context.Context, ownerID, orderID int64) error
	FindByID(ctx context.Context, orderID int64) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	FindByOwner(ctx context.Context, ownerID int64, params ListParams) ([]domain.Order, int64, error)
	FindByStatus(ctx context.Context, status domain.OrderStatus, params ListParams) ([]domain.Order, int64, error)
	EmitTestEvent(ctx context.Context, orderID int64, status domain.OrderStatus) error
}

type orderService struct {
	pool       *pgxpool.Pool
	orderRepo  repository.OrderRepository
	inventory  catalogservice.InventoryGate
	outboxRepo worker.OutboxRepository
	orderTopic string
	logger     *zap.Logger
	tracer     trace.Tracer
}

func NewOrderService(
	pool *pgxpool.Pool,
	orderRepo repository.OrderRepository,
	inventory catalogservice.InventoryGate,
	outboxRepo worker.OutboxRepository,
	orderTopic string,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		pool:       pool,
		orderRepo:  orderRepo,
		inventory:  inventory,
		outboxRepo: outboxRepo,
		orderTopic: orderTopic,
		logger:     logger,
		tracer:     otel.Tracer("order/service"),
	}
}

func validateItems(items []OrderItemRequest) error {
	if len(items) == 0 {
		return ErrEmptyOrder
	}

	for _, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("product %d: %w", item.ProductID, ErrInvalidQuantity)
		}
	}

	return nil
}

// Create validates the request against the catalog, persists the order and
// its outbox event in one transaction and returns the stored order. Stock
// decrements roll back with the order if anything fails.
func (s *orderService) Create(ctx context.Context, ownerID int64, items []OrderItemRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("owner_id", ownerID),
		attribute.Int("items_count", len(items)),
	)

	if err := validateItems(items); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(ctx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	exists, err := s.orderRepo.UserExists(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("user %d: %w", ownerID, repository.ErrUserNotFound)
	}

	order := &domain.Order{
		UserID: ownerID,
		Status: domain.OrderStatusNew,
	}

	for _, req := range items {
		snapshot, err := s.inventory.Reserve(ctx, tx, req.ProductID, req.Quantity)
		if err != nil {
			return nil, err
		}

		order.Items = append(order.Items, domain.OrderItem{
			ProductID:   snapshot.ProductID,
			ProductName: snapshot.Name,
			Quantity:    req.Quantity,
			UnitPrice:   snapshot.UnitPrice,
		})
	}

	order.CalculateTotal()

	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := s.saveEvent(ctx, tx, order, "OrderCreated"); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("owner_id", ownerID),
		zap.String("total", order.Total.String()),
	)

	return order, nil
}

func (s *orderService) saveEvent(ctx context.Context, tx pgx.Tx, order *domain.Order, eventType string) error {
	payload, err := json.Marshal(domain.NewOrderEvent(order))
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	event := &outboxdomain.OutboxEvent{
		AggregateType: "Order",
		AggregateID:   fmt.Sprintf("%d", order.ID),
		EventType:     eventType,
		Payload:       payload,
		Topic:         s.orderTopic,
	}

	if err := s.outboxRepo.SaveOutboxEvent(ctx, tx, event); err != nil {
		return fmt.Errorf("failed to save outbox event: %w", err)
	}

	return nil
}

// Update replaces the whole item set. Stock reserved by the old items is
// handed back before the new items are validated, all inside one
// transaction. No event is emitted for updates.
func (s *orderService) Update(ctx context.Context, ownerID, orderID int64, items []OrderItemRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Update")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("owner_id", ownerID),
		attribute.Int64("order_id", orderID),
	)

	if err := validateItems(items); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(ctx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if order.UserID != ownerID {
		mylogger.Warn(
			ctx,
			s.logger,
			"Update rejected, owner mismatch",
			zap.Int64("order_id", orderID),
			zap.Int64("owner_id", order.UserID),
			zap.Int64("caller_id", ownerID),
		)

		return nil, ErrNotOrderOwner
	}

	for _, item := range order.Items {
		if err := s.inventory.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}

	order.Items = order.Items[:0]
	for _, req := range items {
		snapshot, err := s.inventory.Reserve(ctx, tx, req.ProductID, req.Quantity)
		if err != nil {
			return nil, err
		}

		order.Items = append(order.Items, domain.OrderItem{
			OrderID:     order.ID,
			ProductID:   snapshot.ProductID,
			ProductName: snapshot.Name,
			Quantity:    req.Quantity,
			UnitPrice:   snapshot.UnitPrice,
		})
	}

	order.CalculateTotal()

	if err := s.orderRepo.ReplaceItems(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order updated",
		zap.Int64("order_id", order.ID),
		zap.String("total", order.Total.String()),
	)

	return order, nil
}

// Delete removes the order and hands its reserved stock back. No event is
// emitted for deletions.
func (s *orderService) Delete(ctx context.Context, ownerID, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("owner_id", ownerID),
		attribute.Int64("order_id", orderID),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(ctx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return err
	}

	if order.UserID != ownerID {
		return ErrNotOrderOwner
	}

	for _, item := range order.Items {
		if err := s.inventory.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
			// A vanished product must not block the deletion itself.
			if errors.Is(err, catalogrepo.ErrProductNotFound) {
				continue
			}

			return err
		}
	}

	if err := s.orderRepo.Delete(ctx, tx, orderID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	mylogger.Info(ctx, s.logger, "Order deleted", zap.Int64("order_id", orderID))

	return nil
}

func (s *orderService) FindByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.orderRepo.GetByID(ctx, orderID)
}

func (s *orderService) List(ctx context.Context) ([]domain.Order, error) {
	return s.orderRepo.List(ctx)
}

func (s *orderService) FindByOwner(ctx context.Context, ownerID int64, params ListParams) ([]domain.Order, int64, error) {
	limit, offset := normalizePage(params)
	return s.orderRepo.ListByUser(ctx, ownerID, limit, offset, params.Sort)
}

func (s *orderService) FindByStatus(ctx context.Context, status domain.OrderStatus, params ListParams) ([]domain.Order, int64, error) {
	limit, offset := normalizePage(params)
	return s.orderRepo.ListByStatus(ctx, status, limit, offset, params.Sort)
}

func normalizePage(params ListParams) (limit, offset int64) {
	limit = params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	offset = params.Offset
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

// EmitTestEvent queues a synthetic status event for an existing order. Used
// by the manual send endpoint to exercise the delivery path end to end.
func (s *orderService) EmitTestEvent(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.EmitTestEvent")
	defer span.End()

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	order.Status = status

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(ctx, s.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	if err := s.saveEvent(ctx, tx, order, "OrderStatusChanged"); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
