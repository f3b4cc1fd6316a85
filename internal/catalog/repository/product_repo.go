package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vlkv/go-shop/internal/catalog/domain"
	"github.com/vlkv/go-shop/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Reserve(ctx context.Context, tx pgx.Tx, id, quantity int64) (*domain.ProductSnapshot, error)
	Release(ctx context.Context, tx pgx.Tx, id, quantity int64) error
}

type productRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewProductRepository(pool *pgxpool.Pool, logger *zap.Logger) ProductRepository {
	return &productRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("catalog/product_repo"),
	}
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		SELECT id, name, description, price, stock_quantity, created_at, updated_at
		FROM products
		WHERE id = $1 AND deleted_at IS NULL;
	`

	var res domain.Product
	if err := r.pool.QueryRow(ctx, query, id).
		Scan(&res.ID, &res.Name, &res.Description, &res.Price,
			&res.StockQuantity, &res.CreatedAt, &res.UpdatedAt,
		); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error getting product by id",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting product: %w", err)
	}

	return &res, nil
}

// Reserve checks and decrements stock in one statement. The row lock taken
// by the UPDATE serializes concurrent reservations on the same product, so
// two orders can never both pass the stock check before either commits.
func (r *productRepo) Reserve(ctx context.Context, tx pgx.Tx, id, quantity int64) (*domain.ProductSnapshot, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Reserve")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.Int64("quantity", quantity),
	)

	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = NOW()
		WHERE id = $1
			AND stock_quantity >= $2
			AND deleted_at IS NULL
		RETURNING name, price;
	`

	snapshot := domain.ProductSnapshot{ProductID: id}
	err := tx.QueryRow(ctx, query, id, quantity).Scan(&snapshot.Name, &snapshot.UnitPrice)
	if err == nil {
		return &snapshot, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error reserving stock",
			zap.Int64("id", id),
			zap.Int64("quantity", quantity),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error reserving stock for product %d: %w", id, err)
	}

	existsQuery := `
		SELECT name FROM products WHERE id = $1 AND deleted_at IS NULL;
	`

	var name string
	if err := tx.QueryRow(ctx, existsQuery, id).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)
		return nil, fmt.Errorf("error checking product %d: %w", id, err)
	}

	return nil, fmt.Errorf("product %q: %w", name, ErrInsufficientStock)
}

func (r *productRepo) Release(ctx context.Context, tx pgx.Tx, id, quantity int64) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Release")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
		attribute.Int64("quantity", quantity),
	)

	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL;
	`

	commandTag, err := tx.Exec(ctx, query, id, quantity)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error releasing stock",
			zap.Int64("id", id),
			zap.Int64("quantity", quantity),
			zap.Error(err),
		)

		return fmt.Errorf("error releasing stock for product %d: %w", id, err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}
