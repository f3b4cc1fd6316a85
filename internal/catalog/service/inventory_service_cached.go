package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/vlkv/go-shop/internal/catalog/domain"
)

type cachedInventoryService struct {
	next        InventoryGate
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewCachedInventoryService(next InventoryGate, redisClient *redis.Client) InventoryGate {
	return &cachedInventoryService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    time.Minute * 10,
	}
}

func (s *cachedInventoryService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	key := fmt.Sprintf("product:%d", id)

	val, err := s.redisClient.Get(ctx, key).Result()
	if err == nil {
		var product domain.Product
		if err := json.Unmarshal([]byte(val), &product); err == nil {
			return &product, nil
		}
	}

	product, err := s.next.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		s.redisClient.Set(ctx, key, data, s.cacheTTL)
	}

	return product, nil
}

func (s *cachedInventoryService) Reserve(ctx context.Context, tx pgx.Tx, productID, quantity int64) (*domain.ProductSnapshot, error) {
	snapshot, err := s.next.Reserve(ctx, tx, productID, quantity)
	if err != nil {
		return nil, err
	}

	s.redisClient.Del(ctx, fmt.Sprintf("product:%d", productID))
	return snapshot, nil
}

func (s *cachedInventoryService) Release(ctx context.Context, tx pgx.Tx, productID, quantity int64) error {
	if err := s.next.Release(ctx, tx, productID, quantity); err != nil {
		return err
	}

	s.redisClient.Del(ctx, fmt.Sprintf("product:%d", productID))
	return nil
}
