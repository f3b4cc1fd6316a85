package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/vlkv/go-shop/internal/catalog/domain"
	"github.com/vlkv/go-shop/internal/catalog/repository"
	"github.com/vlkv/go-shop/pkg/mylogger"
	"go.uber.org/zap"
)

// InventoryGate answers whether stock exists for a requested quantity and
// hands back a frozen price snapshot. Reserve and Release run inside the
// caller's transaction so stock movement commits or rolls back with the
// order that caused it.
type InventoryGate interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	Reserve(ctx context.Context, tx pgx.Tx, productID, quantity int64) (*domain.ProductSnapshot, error)
	Release(ctx context.Context, tx pgx.Tx, productID, quantity int64) error
}

type inventoryService struct {
	productRepo repository.ProductRepository
	logger      *zap.Logger
}

func NewInventoryService(productRepo repository.ProductRepository, logger *zap.Logger) InventoryGate {
	return &inventoryService{
		productRepo: productRepo,
		logger:      logger,
	}
}

func (s *inventoryService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	res, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			s.logger.Warn("product not found", zap.Int64("product_id", id))
			return nil, err
		}

		s.logger.Error("error getting product", zap.Error(err))
		return nil, err
	}

	return res, nil
}

func (s *inventoryService) Reserve(ctx context.Context, tx pgx.Tx, productID, quantity int64) (*domain.ProductSnapshot, error) {
	snapshot, err := s.productRepo.Reserve(ctx, tx, productID, quantity)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			mylogger.Warn(
				ctx,
				s.logger,
				"Insufficient stock",
				zap.Int64("product_id", productID),
				zap.Int64("quantity", quantity),
			)

			return nil, err
		}

		if errors.Is(err, repository.ErrProductNotFound) {
			mylogger.Warn(ctx, s.logger, "Product not found", zap.Int64("product_id", productID))
			return nil, err
		}

		mylogger.Error(ctx, s.logger, "Error reserving stock", zap.Error(err))
		return nil, err
	}

	return snapshot, nil
}

func (s *inventoryService) Release(ctx context.Context, tx pgx.Tx, productID, quantity int64) error {
	if err := s.productRepo.Release(ctx, tx, productID, quantity); err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Failed to release stock",
			zap.Int64("product_id", productID),
			zap.Int64("quantity", quantity),
			zap.Error(err),
		)

		return err
	}

	return nil
}
