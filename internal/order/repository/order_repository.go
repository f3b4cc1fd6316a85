package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vlkv/go-shop/internal/order/domain"
	"github.com/vlkv/go-shop/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderRepository interface {
	UserExists(ctx context.Context, tx pgx.Tx, userID int64) (bool, error)
	CreateOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, orderID int64) (*domain.Order, error)
	ReplaceItems(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	Delete(ctx context.Context, tx pgx.Tx, orderID int64) error
	GetByID(ctx context.Context, orderID int64) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	ListByUser(ctx context.Context, userID, limit, offset int64, sort string) ([]domain.Order, int64, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int64, sort string) ([]domain.Order, int64, error)
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("order/repository"),
	}
}

// sortClause whitelists sort keys so caller input never reaches the query
// text directly.
func sortClause(sort string) string {
	switch sort {
	case "created_at":
		return "created_at ASC"
	case "total":
		return "total DESC"
	case "status":
		return "status ASC, created_at DESC"
	default:
		return "created_at DESC"
	}
}

func (r *orderRepo) UserExists(ctx context.Context, tx pgx.Tx, userID int64) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.UserExists")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
	)

	query := `
		SELECT EXISTS (SELECT 1 FROM users WHERE id = $1);
	`

	var exists bool
	if err := tx.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to check user",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)

		return false, fmt.Errorf("failed to check user %d: %w", userID, err)
	}

	return exists, nil
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.CreateOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", order.UserID),
		attribute.Int("items_count", len(order.Items)),
	)

	queryOrder := `
		INSERT INTO orders (user_id, status, total, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	if err := tx.QueryRow(
		ctx,
		queryOrder,
		order.UserID,
		string(order.Status),
		order.Total,
	).Scan(
		&order.ID,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		span.RecordError(err)

		mylogger.Warn(
			ctx,
			r.logger,
			"Failed to insert order",
			zap.Error(err),
		)

		return err
	}

	if err := r.insertItems(ctx, tx, order); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

func (r *orderRepo) insertItems(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	queryItem := `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		if err := tx.QueryRow(
			ctx,
			queryItem,
			order.ID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitPrice,
		).Scan(&item.ID); err != nil {
			mylogger.Error(
				ctx,
				r.logger,
				"Failed to insert item",
				zap.Int64("product_id", item.ProductID),
				zap.Error(err),
			)

			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return nil
}

// GetForUpdate loads the order with its items and locks the order row for
// the rest of the transaction.
func (r *orderRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, orderID int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetForUpdate")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	query := `
		SELECT id, user_id, status, total, created_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	var order domain.Order
	if err := tx.QueryRow(ctx, query, orderID).Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.Total,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query order",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to query order %d: %w", orderID, err)
	}

	items, err := r.itemsOf(ctx, tx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	order.Items = items
	return &order, nil
}

func (r *orderRepo) itemsOf(ctx context.Context, q queryer, orderID int64) ([]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, product_name, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order items rows error: %w", err)
	}

	return items, nil
}

// queryer is satisfied by both pgx.Tx and *pgxpool.Pool.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ReplaceItems swaps the full item set and rewrites the stored total in one
// shot. The caller has already recomputed the total from the new items.
func (r *orderRepo) ReplaceItems(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ReplaceItems")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", order.ID),
		attribute.Int("items_count", len(order.Items)),
	)

	deleteQuery := `
		DELETE FROM order_items WHERE order_id = $1
	`

	if _, err := tx.Exec(ctx, deleteQuery, order.ID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to clear order items: %w", err)
	}

	if err := r.insertItems(ctx, tx, order); err != nil {
		span.RecordError(err)
		return err
	}

	updateQuery := `
		UPDATE orders
		SET total = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING updated_at
	`

	if err := tx.QueryRow(ctx, updateQuery, order.Total, order.ID).Scan(&order.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}

		span.RecordError(err)
		return fmt.Errorf("failed to update order total: %w", err)
	}

	return nil
}

func (r *orderRepo) Delete(ctx context.Context, tx pgx.Tx, orderID int64) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Delete")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	query := `
		DELETE FROM orders WHERE id = $1
	`

	commandTag, err := tx.Exec(ctx, query, orderID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to delete order",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to delete order %d: %w", orderID, err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
	)

	query := `
		SELECT id, user_id, status, total, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order domain.Order
	if err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.Total,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to get order",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to get order %d: %w", orderID, err)
	}

	items, err := r.itemsOf(ctx, r.pool, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	order.Items = items
	return &order, nil
}

func (r *orderRepo) List(ctx context.Context) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	query := `
		SELECT id, user_id, status, total, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders, err := r.scanOrders(ctx, rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return orders, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID, limit, offset int64, sort string) ([]domain.Order, int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListByUser")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int64("limit", limit),
		attribute.Int64("offset", offset),
	)

	query := fmt.Sprintf(`
		SELECT id, user_id, status, total, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY %s
		LIMIT $2 OFFSET $3
	`, sortClause(sort))

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to list orders by user: %w", err)
	}
	defer rows.Close()

	orders, err := r.scanOrders(ctx, rows)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}

	countQuery := `
		SELECT COUNT(*) FROM orders WHERE user_id = $1
	`

	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to count orders by user: %w", err)
	}

	return orders, total, nil
}

func (r *orderRepo) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int64, sort string) ([]domain.Order, int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.ListByStatus")
	defer span.End()

	span.SetAttributes(
		attribute.String("status", string(status)),
		attribute.Int64("limit", limit),
		attribute.Int64("offset", offset),
	)

	query := fmt.Sprintf(`
		SELECT id, user_id, status, total, created_at, updated_at
		FROM orders
		WHERE status = $1
		ORDER BY %s
		LIMIT $2 OFFSET $3
	`, sortClause(sort))

	rows, err := r.pool.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to list orders by status: %w", err)
	}
	defer rows.Close()

	orders, err := r.scanOrders(ctx, rows)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}

	countQuery := `
		SELECT COUNT(*) FROM orders WHERE status = $1
	`

	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, string(status)).Scan(&total); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to count orders by status: %w", err)
	}

	return orders, total, nil
}

func (r *orderRepo) scanOrders(ctx context.Context, rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.Status,
			&order.Total,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orders rows error: %w", err)
	}

	for i := range orders {
		items, err := r.itemsOf(ctx, r.pool, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}
