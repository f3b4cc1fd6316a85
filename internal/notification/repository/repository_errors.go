package repository

import "errors"

var (
	ErrAlreadyProcessed = errors.New("event already processed")
	ErrUserNotFound     = errors.New("user not found")
)
