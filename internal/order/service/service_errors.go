package service

import "errors"

var (
	ErrEmptyOrder      = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("item quantity must be positive")
	ErrNotOrderOwner   = errors.New("order belongs to another user")
)
